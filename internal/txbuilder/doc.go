package txbuilder

// Usage example (not compiled):
//
//  rpcClient, _ := rpc.DialContext(ctx, cfg.RPC.HTTP) // wallet JSON-RPC endpoint
//  sender, err := txbuilder.NewSenderFromConfig(rpcClient, cfg, logger, nil)
//  if err != nil { ... }
//
//  data, _ := txbuilder.Encode(sel, txbuilder.AddressOf(token), txbuilder.Uint256(amount))
//  hash, err := sender.Send(ctx, txbuilder.NewTx(from, to, data, value), cfg.Tx.FallbackGasLimit)
//
