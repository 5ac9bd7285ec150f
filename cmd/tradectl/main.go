package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"moonroute/internal/app"
	"moonroute/internal/config"
	"moonroute/internal/decoder"
	"moonroute/internal/trade"
	"moonroute/internal/txbuilder"
	"moonroute/internal/venue"
)

type options struct {
	mode          string
	side          string
	account       string
	token         string
	amount        string
	amountWei     string
	estimateWei   string
	slippage      string
	autoSlippage  bool
	dex           string
	exactOut      bool
	tokenDecimals int
	data          string
}

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	envFile := flag.String("env", ".env", "dotenv file loaded before the config")
	var o options
	flag.StringVar(&o.mode, "mode", "verify", "verify|buy|sell|fee|probe|balance|explain|venues")
	flag.StringVar(&o.side, "side", "buy", "buy|sell (fee mode)")
	flag.StringVar(&o.account, "account", "", "trading account address")
	flag.StringVar(&o.token, "token", "", "token contract address")
	flag.StringVar(&o.amount, "amount", "", "amount in display units (ETH for buys, tokens for sells)")
	flag.StringVar(&o.amountWei, "amount-wei", "", "amount in base units (overrides -amount)")
	flag.StringVar(&o.estimateWei, "estimate-wei", "", "expected counter amount in base units")
	flag.StringVar(&o.slippage, "slippage", "", "slippage percent (config default when empty)")
	flag.BoolVar(&o.autoSlippage, "auto-slippage", false, "derive slippage from the trade size")
	flag.StringVar(&o.dex, "dex", "", "Moonshot|AbstractSwap (verified when empty)")
	flag.BoolVar(&o.exactOut, "exact-out", false, "treat the amount as the exact output")
	flag.IntVar(&o.tokenDecimals, "token-decimals", -1, "token decimals (read from chain when unset)")
	flag.StringVar(&o.data, "data", "", "calldata to explain")
	debug := flag.Bool("debug", false, "enable debug logs")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "env file error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	cfg.Log.Format = "text"
	logger := app.NewLogger(cfg, os.Stderr, *debug)

	if err := run(context.Background(), logger, cfg, o); err != nil {
		logger.Error("tradectl failed", "mode", o.mode, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config, o options) error {
	mode := strings.ToLower(strings.TrimSpace(o.mode))
	if mode == "explain" {
		dec, err := decoder.New()
		if err != nil {
			return err
		}
		m, err := dec.DecodeHex(o.data)
		if err != nil {
			return err
		}
		return printJSON(m)
	}

	client, err := app.Dial(ctx, cfg, logger, "moonroute-tradectl")
	if err != nil {
		return fmt.Errorf("rpc dial: %w", err)
	}
	defer client.Close()
	a, err := app.New(cfg, logger, client, nil)
	if err != nil {
		return err
	}

	switch mode {
	case "venues":
		return printJSON(a.Trade.Venues())
	case "verify":
		return printJSON(a.Trade.Verify(ctx, o.token))
	case "probe":
		token, err := txbuilder.ParseAddress(o.token)
		if err != nil {
			return err
		}
		info, err := txbuilder.ProbeToken(ctx, a.Provider, token)
		if err != nil {
			return err
		}
		return printJSON(info)
	case "balance":
		account, err := txbuilder.ParseAddress(o.account)
		if err != nil {
			return err
		}
		bal, err := txbuilder.ReadNativeBalance(ctx, a.Provider, account)
		if err != nil {
			return err
		}
		return printJSON(map[string]string{"address": account.Hex(), "eth_wei": bal.String(), "eth": txbuilder.FormatUnits(bal, 18)})
	case "fee":
		est, err := a.Trade.PreviewFee(ctx, trade.FeeRequest{
			Account: o.account,
			Token:   o.token,
			Side:    venue.Side(o.side),
			Venue:   venue.Venue(o.dex),
		})
		if err != nil {
			return err
		}
		return printJSON(est)
	case "buy", "sell":
		req, err := buildRequest(ctx, a, o, venue.Side(mode))
		if err != nil {
			return err
		}
		if o.exactOut {
			return printResult(a.Trade.TradeExactOut(ctx, req))
		}
		if req.Venue == "" {
			res := a.Trade.Swap(ctx, trade.SwapRequest{Request: req})
			if err := printJSON(res); err != nil {
				return err
			}
			if !res.Success {
				return errors.New(res.Error)
			}
			return nil
		}
		return printResult(a.Trade.TradeExactIn(ctx, req))
	default:
		return fmt.Errorf("unknown mode %q", o.mode)
	}
}

func buildRequest(ctx context.Context, a *app.App, o options, side venue.Side) (trade.Request, error) {
	req := trade.Request{
		Account:  o.account,
		Token:    o.token,
		Side:     side,
		Estimate: o.estimateWei,
	}
	if o.dex != "" {
		v, err := venue.ParseVenue(o.dex)
		if err != nil {
			return req, err
		}
		req.Venue = v
	}

	decimals := uint8(18)
	if side == venue.Sell {
		d, err := tokenDecimals(ctx, a, o)
		if err != nil {
			return req, err
		}
		decimals = d
	}
	amount, err := resolveAmount(o, decimals)
	if err != nil {
		return req, err
	}
	req.Amount = amount

	switch {
	case o.slippage != "":
		s, err := decimal.NewFromString(o.slippage)
		if err != nil {
			return req, fmt.Errorf("slippage: %w", err)
		}
		req.Slippage = decimal.NewNullDecimal(s)
	case o.autoSlippage && o.amount != "":
		human, err := decimal.NewFromString(o.amount)
		if err != nil {
			return req, fmt.Errorf("amount: %w", err)
		}
		req.Slippage = decimal.NewNullDecimal(trade.AutoSlippage(human))
	}
	return req, nil
}

func resolveAmount(o options, decimals uint8) (string, error) {
	if o.amountWei != "" {
		return o.amountWei, nil
	}
	if o.amount == "" {
		return "", errors.New("amount is required")
	}
	v, err := txbuilder.ParseUnits(o.amount, decimals)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func tokenDecimals(ctx context.Context, a *app.App, o options) (uint8, error) {
	if o.tokenDecimals >= 0 {
		if o.tokenDecimals > 255 {
			return 0, errors.New("token decimals out of range")
		}
		return uint8(o.tokenDecimals), nil
	}
	if o.amountWei != "" {
		return 0, nil
	}
	token, err := txbuilder.ParseAddress(o.token)
	if err != nil {
		return 0, err
	}
	return txbuilder.ReadERC20Decimals(ctx, a.Provider, token)
}

func printResult(res trade.Result) error {
	if err := printJSON(res); err != nil {
		return err
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
