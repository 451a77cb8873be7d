package ethcall

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// CallOptions are the per-invocation transaction fields. Every field is
// optional; unset fields fall back to the contract defaults.
type CallOptions struct {
	From                 *common.Address
	To                   *common.Address
	Nonce                *uint64
	Gas                  *uint64
	GasPrice             *big.Int
	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int
	Value                *big.Int
	Type                 *uint8
	ChainID              *big.Int
}

// Clone returns a deep copy of the options. A nil receiver yields empty options.
func (o *CallOptions) Clone() *CallOptions {
	if o == nil {
		return &CallOptions{}
	}
	return &CallOptions{
		From:                 cloneAddress(o.From),
		To:                   cloneAddress(o.To),
		Nonce:                cloneUint64(o.Nonce),
		Gas:                  cloneUint64(o.Gas),
		GasPrice:             cloneBig(o.GasPrice),
		MaxPriorityFeePerGas: cloneBig(o.MaxPriorityFeePerGas),
		MaxFeePerGas:         cloneBig(o.MaxFeePerGas),
		Value:                cloneBig(o.Value),
		Type:                 cloneUint8(o.Type),
		ChainID:              cloneBig(o.ChainID),
	}
}

// Defaults are the contract-level fallbacks applied by Resolve.
type Defaults struct {
	Address  *common.Address
	From     *common.Address
	Gas      *uint64
	GasPrice *big.Int
}

// ResolvedOptions are CallOptions merged with contract defaults and validated
// against the method's mutability. To is always set; Value is only set for
// payable methods.
type ResolvedOptions struct {
	From                 *common.Address
	To                   common.Address
	Nonce                *uint64
	Gas                  *uint64
	GasPrice             *big.Int
	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int
	Value                *big.Int
	Type                 *uint8
	ChainID              *big.Int
}

// IsDynamicFee reports whether the options describe an EIP-1559 transaction.
func (r ResolvedOptions) IsDynamicFee() bool {
	if r.Type != nil {
		return *r.Type == types.DynamicFeeTxType
	}
	return r.MaxFeePerGas != nil || r.MaxPriorityFeePerGas != nil
}

// Resolve merges call options over contract defaults and validates the result
// against the method's mutability. It performs no I/O.
func Resolve(desc MethodDescriptor, opts *CallOptions, defaults Defaults) (ResolvedOptions, error) {
	call := opts.Clone()

	if err := checkFeeFields(desc.Name, call); err != nil {
		return ResolvedOptions{}, err
	}

	r := ResolvedOptions{
		From:                 firstAddress(call.From, defaults.From),
		Nonce:                call.Nonce,
		Gas:                  call.Gas,
		GasPrice:             call.GasPrice,
		MaxPriorityFeePerGas: call.MaxPriorityFeePerGas,
		MaxFeePerGas:         call.MaxFeePerGas,
		Type:                 call.Type,
		ChainID:              call.ChainID,
	}

	to := firstAddress(call.To, defaults.Address)
	if to == nil {
		return ResolvedOptions{}, ErrMissingAddress
	}
	r.To = *to

	if r.Gas == nil {
		r.Gas = cloneUint64(defaults.Gas)
	}

	// Fee fields resolve as a group: a caller choosing EIP-1559 fees or a
	// dynamic type must not inherit the contract's legacy gas price.
	if !hasFeeFields(call) && !r.IsDynamicFee() {
		r.GasPrice = cloneBig(defaults.GasPrice)
	}

	if call.Value != nil {
		switch {
		case desc.Mutability == Payable:
			r.Value = call.Value
		case call.Value.Sign() != 0:
			return ResolvedOptions{}, &InvalidValueError{
				Method:     desc.Name,
				Mutability: desc.Mutability,
				Value:      call.Value,
			}
		}
	}

	return r, nil
}

func checkFeeFields(method string, o *CallOptions) error {
	dynamic := o.MaxFeePerGas != nil || o.MaxPriorityFeePerGas != nil
	if o.GasPrice != nil && dynamic {
		return &ConflictingFeeFieldsError{Method: method, Reason: "gasPrice set together with maxFeePerGas/maxPriorityFeePerGas"}
	}
	if o.Type == nil {
		return nil
	}
	switch *o.Type {
	case types.LegacyTxType, types.AccessListTxType:
		if dynamic {
			return &ConflictingFeeFieldsError{Method: method, Reason: "legacy transaction type with EIP-1559 fee fields"}
		}
	case types.DynamicFeeTxType:
		if o.GasPrice != nil {
			return &ConflictingFeeFieldsError{Method: method, Reason: "dynamic fee transaction type with gasPrice"}
		}
	}
	return nil
}

func hasFeeFields(o *CallOptions) bool {
	return o.GasPrice != nil || o.MaxFeePerGas != nil || o.MaxPriorityFeePerGas != nil
}

func firstAddress(addrs ...*common.Address) *common.Address {
	for _, a := range addrs {
		if a != nil {
			return cloneAddress(a)
		}
	}
	return nil
}

func cloneAddress(a *common.Address) *common.Address {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func cloneUint64(v *uint64) *uint64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneUint8(v *uint8) *uint8 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// ContractOption configures a Contract.
type ContractOption func(*Contract)

// WithDefaults sets the contract-level fallbacks for From, Gas and GasPrice.
// The contract address passed to NewContract is kept unless d.Address is set.
func WithDefaults(d Defaults) ContractOption {
	return func(c *Contract) {
		if d.Address == nil {
			d.Address = c.defaults.Address
		}
		c.defaults = d
	}
}

// WithFrom sets the default sender.
func WithFrom(from common.Address) ContractOption {
	return func(c *Contract) {
		c.defaults.From = &from
	}
}

// WithGas sets the default gas limit.
func WithGas(gas uint64) ContractOption {
	return func(c *Contract) {
		c.defaults.Gas = &gas
	}
}

// WithGasPrice sets the default legacy gas price.
func WithGasPrice(price *big.Int) ContractOption {
	return func(c *Contract) {
		c.defaults.GasPrice = cloneBig(price)
	}
}

// WithConfig replaces the tracking configuration. Zero polling interval and
// retry settings are replaced by their defaults.
func WithConfig(cfg Config) ContractOption {
	return func(c *Contract) {
		c.config = cfg.normalize()
	}
}

// WithCodec replaces the ABI codec.
func WithCodec(codec Codec) ContractOption {
	return func(c *Contract) {
		c.codec = codec
	}
}

// WithSigner enables local signing: transactions are filled, signed and
// broadcast with eth_sendRawTransaction.
func WithSigner(s Signer) ContractOption {
	return func(c *Contract) {
		c.signer = s
	}
}

// WithLogger sets the logger. The default logger discards everything.
func WithLogger(log *zap.Logger) ContractOption {
	return func(c *Contract) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics enables metrics collection.
func WithMetrics(m *Metrics) ContractOption {
	return func(c *Contract) {
		c.metrics = m
	}
}

// SendOption configures a single Send.
type SendOption func(*sendConfig)

type sendConfig struct {
	config   Config
	handlers []pendingHandler
}

type pendingHandler struct {
	kinds []EventKind
	fn    func(Event)
}

// WithRequiredConfirmations overrides the confirmation threshold for one Send.
func WithRequiredConfirmations(n uint64) SendOption {
	return func(c *sendConfig) {
		c.config.RequiredConfirmations = n
	}
}

// WithTrackingStrategy overrides the tracking strategy for one Send.
func WithTrackingStrategy(s TrackingStrategy) SendOption {
	return func(c *sendConfig) {
		c.config.Strategy = s
	}
}

// OnEvent registers a handler for the given kind before tracking starts, so it
// also observes the TransactionHash event.
func OnEvent(kind EventKind, fn func(Event)) SendOption {
	return func(c *sendConfig) {
		c.handlers = append(c.handlers, pendingHandler{kinds: []EventKind{kind}, fn: fn})
	}
}

// OnAnyEvent registers a handler for every event kind before tracking starts.
func OnAnyEvent(fn func(Event)) SendOption {
	return func(c *sendConfig) {
		c.handlers = append(c.handlers, pendingHandler{fn: fn})
	}
}
