// Package ethcall invokes methods of deployed Ethereum contracts and tracks
// the transactions it sends until they are confirmed.
//
// A Contract binds an ABI to a Transport. Binding a method to arguments
// validates them by encoding the call data once; the resulting Method offers
// four operations:
//   - EncodeABI returns the call data without any I/O
//   - Call executes the method against a block without changing state
//   - EstimateGas asks the node how much gas the method would consume
//   - Send broadcasts a transaction and returns a Transaction handle
//
// # Basic Usage
//
//	transport, err := ethcall.Dial(ctx, "ws://localhost:8545")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	token := ethcall.NewContract(tokenAddr, ethcall.MustParseABI(erc20ABI), transport,
//	    ethcall.WithSigner(signer),
//	    ethcall.WithLogger(logger),
//	)
//
//	// Read-only call
//	out, err := token.MustMethod("balanceOf", holder).Call(ctx, nil)
//
//	// State-changing transaction
//	tx, err := token.MustMethod("transfer", recipient, amount).Send(ctx, nil,
//	    ethcall.OnEvent(ethcall.EventConfirmation, func(ev ethcall.Event) {
//	        fmt.Println("confirmations:", ev.Confirmations)
//	    }),
//	)
//	receipt, err := tx.Wait(ctx)
//
// # Options
//
// Per-call CallOptions override the contract defaults set with WithDefaults,
// WithFrom, WithGas and WithGasPrice. Resolution rejects a non-zero value for
// a method that is not payable, and rejects mixing a legacy gas price with
// EIP-1559 fee fields.
//
// # Transaction Lifecycle
//
// A sent transaction moves through the states
//
//	Submitted -> AwaitingReceipt -> Mined -> Confirming -> Confirmed
//
// and may end in Reverted, TimedOut, Displaced or ProviderError instead.
// Subscribers receive a TransactionHash event, a Receipt event, one
// Confirmation event per new confirmation count and, on failure, a single
// Error event. Wait returns the receipt once the configured number of
// confirmations is reached, or the terminal error, which matches ErrReverted,
// ErrTimedOut, ErrDisplaced, ErrProviderError or ErrCancelled.
//
// The tracker either polls the node on a fixed interval or subscribes to new
// heads (Config.Strategy). Failed polling requests are retried with
// exponential backoff; the broadcast itself is never retried.
package ethcall
