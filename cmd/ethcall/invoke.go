package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os/signal"
	"syscall"

	"github.com/branched-services/go-ethcall"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/spf13/cobra"
)

// txFlags are the transaction fields shared by call, estimate and send.
type txFlags struct {
	Value          string
	Gas            uint64
	GasPrice       string
	MaxFee         string
	MaxPriorityFee string
	Nonce          int64
}

func (f *txFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.Value, "value", "", "wei to transfer (payable methods only)")
	fs.Uint64Var(&f.Gas, "gas", 0, "gas limit (default: estimated)")
	fs.StringVar(&f.GasPrice, "gas-price", "", "legacy gas price in wei")
	fs.StringVar(&f.MaxFee, "max-fee", "", "EIP-1559 max fee per gas in wei")
	fs.StringVar(&f.MaxPriorityFee, "max-priority-fee", "", "EIP-1559 max priority fee per gas in wei")
	fs.Int64Var(&f.Nonce, "nonce", -1, "nonce (default: pending nonce of the sender)")
}

func (f *txFlags) options() (*ethcall.CallOptions, error) {
	opts := &ethcall.CallOptions{}
	var err error
	if opts.Value, err = parseWei("value", f.Value); err != nil {
		return nil, err
	}
	if opts.GasPrice, err = parseWei("gas-price", f.GasPrice); err != nil {
		return nil, err
	}
	if opts.MaxFeePerGas, err = parseWei("max-fee", f.MaxFee); err != nil {
		return nil, err
	}
	if opts.MaxPriorityFeePerGas, err = parseWei("max-priority-fee", f.MaxPriorityFee); err != nil {
		return nil, err
	}
	if f.Gas > 0 {
		gas := f.Gas
		opts.Gas = &gas
	}
	if f.Nonce >= 0 {
		nonce := uint64(f.Nonce)
		opts.Nonce = &nonce
	}
	return opts, nil
}

func parseWei(name, s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, ok := math.ParseBig256(s)
	if !ok {
		return nil, fmt.Errorf("invalid --%s %q", name, s)
	}
	return v, nil
}

func newEncodeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "encode <method> [args...]",
		Short: "Print the call data of a method",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), flags, false)
			if err != nil {
				return err
			}
			defer s.close()

			m, err := bind(s.contract, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), m.EncodeABI())
			return nil
		},
	}
}

func newCallCmd(flags *globalFlags) *cobra.Command {
	var (
		tf    txFlags
		block string
	)
	cmd := &cobra.Command{
		Use:   "call <method> [args...]",
		Short: "Execute a method without sending a transaction",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseBlock(block)
			if err != nil {
				return err
			}
			opts, err := tf.options()
			if err != nil {
				return err
			}
			s, err := open(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer s.close()

			m, err := bind(s.contract, args)
			if err != nil {
				return err
			}
			out, err := m.CallAt(cmd.Context(), opts, at)
			if err != nil {
				return err
			}
			for i, v := range out {
				name := m.Descriptor().Outputs[i].Name
				if name == "" {
					name = fmt.Sprintf("[%d]", i)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, formatValue(v))
			}
			return nil
		},
	}
	tf.register(cmd)
	cmd.Flags().StringVar(&block, "block", "latest", "block tag, 0x block number or block hash")
	return cmd
}

func newEstimateCmd(flags *globalFlags) *cobra.Command {
	var tf txFlags
	cmd := &cobra.Command{
		Use:   "estimate <method> [args...]",
		Short: "Estimate the gas a method would consume",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := tf.options()
			if err != nil {
				return err
			}
			s, err := open(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer s.close()

			m, err := bind(s.contract, args)
			if err != nil {
				return err
			}
			gas, err := m.EstimateGas(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), gas)
			return nil
		},
	}
	tf.register(cmd)
	return cmd
}

func newSendCmd(flags *globalFlags) *cobra.Command {
	var (
		tf            txFlags
		confirmations int64
		strategy      string
	)
	cmd := &cobra.Command{
		Use:   "send <method> [args...]",
		Short: "Send a transaction and follow it until confirmed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := tf.options()
			if err != nil {
				return err
			}
			var sendOpts []ethcall.SendOption
			if confirmations >= 0 {
				sendOpts = append(sendOpts, ethcall.WithRequiredConfirmations(uint64(confirmations)))
			}
			if strategy != "" {
				var st ethcall.TrackingStrategy
				if err := st.UnmarshalText([]byte(strategy)); err != nil {
					return err
				}
				sendOpts = append(sendOpts, ethcall.WithTrackingStrategy(st))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := open(ctx, flags, true)
			if err != nil {
				return err
			}
			defer s.close()

			m, err := bind(s.contract, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sendOpts = append(sendOpts, ethcall.OnAnyEvent(func(ev ethcall.Event) {
				switch ev.Kind {
				case ethcall.EventTransactionHash:
					fmt.Fprintf(out, "hash          %s\n", ev.Hash.Hex())
				case ethcall.EventReceipt:
					fmt.Fprintf(out, "receipt       block %v, status %d, gas used %d\n",
						ev.Receipt.BlockNumber, ev.Receipt.Status, ev.Receipt.GasUsed)
				case ethcall.EventConfirmation:
					fmt.Fprintf(out, "confirmation  %d\n", ev.Confirmations)
				case ethcall.EventError:
					fmt.Fprintf(out, "error         %v\n", ev.Err)
				}
			}))

			tx, err := m.Send(ctx, opts, sendOpts...)
			if err != nil {
				return err
			}
			_, err = tx.Wait(cmd.Context())
			return err
		},
	}
	tf.register(cmd)
	cmd.Flags().Int64Var(&confirmations, "confirmations", -1, "confirmations to wait for (default from config)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "tracking strategy: polling or subscription")
	return cmd
}

// bind resolves args[0] to a method and converts the remaining arguments.
func bind(c *ethcall.Contract, args []string) (*ethcall.Method, error) {
	name := args[0]
	method, ok := c.ABI().Methods[name]
	if !ok {
		return nil, &ethcall.MethodNotFoundError{Contract: c.Address(), Method: name}
	}
	values, err := parseArgs(method.Inputs, args[1:])
	if err != nil {
		return nil, err
	}
	return c.Method(name, values...)
}

// parseArgs keeps scalar arguments as strings for the codec to convert and
// decodes array arguments from JSON.
func parseArgs(inputs abi.Arguments, raw []string) ([]any, error) {
	values := make([]any, len(raw))
	for i, s := range raw {
		values[i] = s
		if i >= len(inputs) {
			continue
		}
		switch inputs[i].Type.T {
		case abi.SliceTy, abi.ArrayTy:
			dec := json.NewDecoder(bytes.NewReader([]byte(s)))
			dec.UseNumber()
			var list []any
			if err := dec.Decode(&list); err != nil {
				return nil, fmt.Errorf("argument %d (%s): expected a JSON array: %w", i, inputs[i].Type, err)
			}
			values[i] = stringify(list)
		}
	}
	return values, nil
}

// stringify turns JSON numbers and booleans back into strings so nested
// values go through the same conversions as top-level arguments.
func stringify(v any) any {
	switch v := v.(type) {
	case []any:
		for i := range v {
			v[i] = stringify(v[i])
		}
		return v
	case json.Number:
		return v.String()
	case bool:
		return fmt.Sprint(v)
	default:
		return v
	}
}

func parseBlock(s string) (rpc.BlockNumberOrHash, error) {
	var b rpc.BlockNumberOrHash
	if err := b.UnmarshalJSON([]byte(`"` + s + `"`)); err != nil {
		return b, fmt.Errorf("invalid --block %q: %w", s, err)
	}
	return b, nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case common.Address:
		return v.Hex()
	case []byte:
		return hexutil.Encode(v)
	case *big.Int:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
