package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore appends entries as JSON lines. The path "-" writes to stdout and
// keeps nothing to list.
type FileStore struct {
	path string

	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	if path == "-" {
		s.enc = json.NewEncoder(os.Stdout)
		s.enc.SetEscapeHTML(false)
		return s, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	s.file = f
	s.enc = json.NewEncoder(f)
	s.enc.SetEscapeHTML(false)
	return s, nil
}

func (s *FileStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(e); err != nil {
		return fmt.Errorf("journal append: %w", err)
	}
	return nil
}

func (s *FileStore) Recent(ctx context.Context, account string, limit int) ([]Entry, error) {
	if s.file == nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var all []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		if matchAccount(account, e.Account) {
			all = append(all, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]Entry, 0, limit)
	for i := len(all) - 1; len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
