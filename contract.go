package ethcall

import (
	"errors"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Contract binds a deployed contract's ABI to a transport. It owns the
// contract-level defaults, the tracking configuration and the collaborators
// (codec, signer, logger, metrics) shared by every Method it creates.
type Contract struct {
	address   common.Address
	abi       abi.ABI
	transport Transport
	defaults  Defaults
	config    Config
	codec     Codec
	signer    Signer
	log       *zap.Logger
	metrics   *Metrics
}

// NewContract creates a Contract for the contract deployed at address.
func NewContract(address common.Address, contractABI abi.ABI, transport Transport, opts ...ContractOption) *Contract {
	c := &Contract{
		address:   address,
		abi:       contractABI,
		transport: transport,
		defaults:  Defaults{Address: &address},
		config:    DefaultConfig(),
		codec:     ABICodec{},
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns the contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// ABI returns the contract ABI.
func (c *Contract) ABI() abi.ABI {
	return c.abi
}

// Defaults returns a copy of the contract-level defaults.
func (c *Contract) Defaults() Defaults {
	return Defaults{
		Address:  cloneAddress(c.defaults.Address),
		From:     cloneAddress(c.defaults.From),
		Gas:      cloneUint64(c.defaults.Gas),
		GasPrice: cloneBig(c.defaults.GasPrice),
	}
}

// Config returns the tracking configuration.
func (c *Contract) Config() Config {
	return c.config
}

// Method binds the named method to args. Arguments may be the exact Go types
// the abi package expects or loose forms (ints, decimal and hex strings);
// they are validated by encoding them once.
func (c *Contract) Method(name string, args ...any) (*Method, error) {
	method, ok := c.abi.Methods[name]
	if !ok {
		return nil, &MethodNotFoundError{Contract: c.address, Method: name}
	}
	return newMethod(c, NewMethodDescriptor(method), args)
}

// MustMethod is like Method but panics on error.
func (c *Contract) MustMethod(name string, args ...any) *Method {
	m, err := c.Method(name, args...)
	if err != nil {
		panic(err)
	}
	return m
}

// HasMethod returns true if the contract has a method with the given name.
func (c *Contract) HasMethod(name string) bool {
	_, ok := c.abi.Methods[name]
	return ok
}

// MethodNames returns all method names in the contract ABI, sorted.
func (c *Contract) MethodNames() []string {
	names := make([]string, 0, len(c.abi.Methods))
	for name := range c.abi.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// revertOr decodes the revert payload of err against the contract ABI, or
// returns err unchanged when it isn't a revert.
func (c *Contract) revertOr(method string, err error) error {
	var rev *ExecutionRevertedError
	if !errors.As(err, &rev) {
		return err
	}
	decoded := decodeRevert(c.abi, method, rev.Data)
	if decoded.Reason == "" && decoded.ErrorName == "" {
		decoded.Reason = rev.Reason
	}
	return decoded
}

// ParseABI parses a JSON ABI string into an abi.ABI.
func ParseABI(abiJSON string) (abi.ABI, error) {
	return abi.JSON(strings.NewReader(abiJSON))
}

// MustParseABI is like ParseABI but panics on error.
func MustParseABI(abiJSON string) abi.ABI {
	parsed, err := ParseABI(abiJSON)
	if err != nil {
		panic(err)
	}
	return parsed
}
