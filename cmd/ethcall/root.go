package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/branched-services/go-ethcall"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type globalFlags struct {
	RPC     string
	ABI     string
	Address string
	Config  string
	From    string
	Key     string
	Verbose bool
}

// session holds everything a subcommand needs once flags are resolved.
type session struct {
	contract  *ethcall.Contract
	transport *ethcall.RPCTransport
	log       *zap.Logger
}

func (s *session) close() {
	if s.transport != nil {
		s.transport.Close()
	}
	_ = s.log.Sync()
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "ethcall",
		Short: "Invoke contract methods over JSON-RPC",
		Long: `ethcall binds a contract ABI to a node and invokes its methods.

Arguments are given as strings and converted to the method's parameter types:
integers in decimal or 0x hex, addresses and bytes in 0x hex, booleans as
true/false, and arrays as JSON, e.g. '["0x01","0x02"]'.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.RPC, "rpc", "", "node endpoint (http, ws or ipc)")
	pf.StringVar(&flags.ABI, "abi", "", "ABI JSON file or Foundry/Hardhat artifact")
	pf.StringVar(&flags.Address, "address", "", "contract address")
	pf.StringVar(&flags.Config, "config", "", "YAML configuration file")
	pf.StringVar(&flags.From, "from", "", "sender address")
	pf.StringVar(&flags.Key, "key", "", "hex private key used to sign transactions (default $ETHCALL_KEY)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newEncodeCmd(flags),
		newCallCmd(flags),
		newEstimateCmd(flags),
		newSendCmd(flags),
	)
	return root
}

// open resolves flags over the config file and builds the contract. The
// transport is only dialed when needRPC is set.
func open(ctx context.Context, flags *globalFlags, needRPC bool) (*session, error) {
	fc, err := loadFileConfig(flags.Config)
	if err != nil {
		return nil, err
	}
	rpcURL := firstNonEmpty(flags.RPC, fc.RPC)
	abiPath := firstNonEmpty(flags.ABI, fc.ABI)
	address := firstNonEmpty(flags.Address, fc.Address)
	from := firstNonEmpty(flags.From, fc.From)
	key := firstNonEmpty(flags.Key, os.Getenv("ETHCALL_KEY"))

	log, err := newLogger(flags.Verbose, fc.LogLevel)
	if err != nil {
		return nil, err
	}

	if abiPath == "" {
		return nil, errors.New("--abi is required")
	}
	contractABI, err := loadABI(abiPath)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid or missing --address %q", address)
	}
	tracking, err := fc.trackingConfig()
	if err != nil {
		return nil, err
	}

	opts := []ethcall.ContractOption{
		ethcall.WithConfig(tracking),
		ethcall.WithLogger(log),
	}
	if from != "" {
		if !common.IsHexAddress(from) {
			return nil, fmt.Errorf("invalid --from %q", from)
		}
		opts = append(opts, ethcall.WithFrom(common.HexToAddress(from)))
	}
	if key != "" {
		signer, err := ethcall.NewKeySignerFromHex(key)
		if err != nil {
			return nil, fmt.Errorf("parse key: %w", err)
		}
		opts = append(opts, ethcall.WithSigner(signer))
		if from == "" {
			opts = append(opts, ethcall.WithFrom(signer.Address()))
		}
	}

	s := &session{log: log}
	var transport ethcall.Transport = offline{}
	if needRPC {
		if rpcURL == "" {
			return nil, errors.New("--rpc is required")
		}
		s.transport, err = ethcall.Dial(ctx, rpcURL)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
		}
		transport = s.transport
	}
	s.contract = ethcall.NewContract(common.HexToAddress(address), contractABI, transport, opts...)
	return s, nil
}

// offline is the transport of commands that never reach the node.
type offline struct{}

func (offline) Request(context.Context, any, string, ...any) error {
	return errors.New("no --rpc endpoint configured")
}

func newLogger(verbose bool, level string) (*zap.Logger, error) {
	lvl := zapcore.WarnLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		lvl = parsed
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	cc.Level = zap.NewAtomicLevelAt(lvl)
	cc.Sampling = nil
	cc.OutputPaths = []string{"stderr"}
	return cc.Build()
}

// loadABI accepts a bare ABI array or a build artifact with an "abi" field.
func loadABI(path string) (abi.ABI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("read ABI: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var artifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(data, &artifact); err != nil {
			return abi.ABI{}, fmt.Errorf("parse artifact %s: %w", path, err)
		}
		if len(artifact.ABI) == 0 {
			return abi.ABI{}, fmt.Errorf("artifact %s has no abi field", path)
		}
		data = artifact.ABI
	}
	parsed, err := ethcall.ParseABI(string(data))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse ABI %s: %w", path, err)
	}
	return parsed, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
