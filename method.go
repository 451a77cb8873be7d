package ethcall

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Mutability classifies how a method interacts with contract state.
type Mutability uint8

const (
	// NonPayable methods change state and reject value transfers.
	NonPayable Mutability = iota

	// Payable methods change state and accept value transfers.
	Payable

	// View methods read state.
	View

	// Pure methods touch no state at all.
	Pure
)

func (m Mutability) String() string {
	switch m {
	case Payable:
		return "payable"
	case View:
		return "view"
	case Pure:
		return "pure"
	default:
		return "nonpayable"
	}
}

// ReadOnly reports whether the method cannot change state.
func (m Mutability) ReadOnly() bool {
	return m == View || m == Pure
}

func mutabilityOf(method abi.Method) Mutability {
	switch method.StateMutability {
	case "pure":
		return Pure
	case "view":
		return View
	case "payable":
		return Payable
	case "nonpayable":
		return NonPayable
	}
	// Pre-0.5 ABIs only carry the constant and payable flags.
	switch {
	case method.Payable:
		return Payable
	case method.Constant:
		return View
	default:
		return NonPayable
	}
}

// MethodDescriptor is the immutable description of one ABI function.
type MethodDescriptor struct {
	Name       string
	Signature  string
	Selector   [4]byte
	Inputs     abi.Arguments
	Outputs    abi.Arguments
	Mutability Mutability
}

// NewMethodDescriptor derives a descriptor from a parsed ABI method.
func NewMethodDescriptor(method abi.Method) MethodDescriptor {
	var sel [4]byte
	copy(sel[:], method.ID)
	return MethodDescriptor{
		Name:       method.Name,
		Signature:  method.Sig,
		Selector:   sel,
		Inputs:     method.Inputs,
		Outputs:    method.Outputs,
		Mutability: mutabilityOf(method),
	}
}

// Method is a contract function bound to a set of arguments. It exposes the
// four invocation operations. Method is immutable and safe for concurrent use.
type Method struct {
	contract *Contract
	desc     MethodDescriptor
	args     []any
	data     []byte
}

func newMethod(c *Contract, desc MethodDescriptor, args []any) (*Method, error) {
	bound := make([]any, len(args))
	copy(bound, args)

	data, err := c.codec.EncodeCall(desc, bound)
	if err != nil {
		return nil, asEncodingError(desc.Name, err)
	}

	return &Method{
		contract: c,
		desc:     desc,
		args:     bound,
		data:     data,
	}, nil
}

// Descriptor returns the method's ABI description.
func (m *Method) Descriptor() MethodDescriptor {
	return m.desc
}

// Args returns a copy of the bound arguments.
func (m *Method) Args() []any {
	args := make([]any, len(m.args))
	copy(args, m.args)
	return args
}

// EncodeABI returns the call data for the bound arguments.
func (m *Method) EncodeABI() hexutil.Bytes {
	data := make([]byte, len(m.data))
	copy(data, m.data)
	return data
}

// Call executes the method against the latest block without changing state
// and returns the decoded outputs.
func (m *Method) Call(ctx context.Context, opts *CallOptions) ([]any, error) {
	return m.CallAt(ctx, opts, rpc.BlockNumberOrHashWithNumber(rpc.LatestBlockNumber))
}

// CallAt is like Call but executes against the given block.
func (m *Method) CallAt(ctx context.Context, opts *CallOptions, block rpc.BlockNumberOrHash) ([]any, error) {
	resolved, err := Resolve(m.desc, opts, m.contract.defaults)
	if err != nil {
		return nil, err
	}

	out, err := executeCall(ctx, m.contract.transport, resolved, m.EncodeABI(), block)
	if err != nil {
		return nil, m.contract.revertOr(m.desc.Name, err)
	}

	values, err := m.contract.codec.DecodeResult(m.desc, out)
	if err != nil {
		return nil, asDecodingError(m.desc.Name, out, err)
	}
	return values, nil
}

// EstimateGas asks the node how much gas the method would consume.
func (m *Method) EstimateGas(ctx context.Context, opts *CallOptions) (Gas, error) {
	resolved, err := Resolve(m.desc, opts, m.contract.defaults)
	if err != nil {
		return 0, err
	}

	gas, err := estimateGas(ctx, m.contract.transport, resolved, m.EncodeABI())
	if err != nil {
		return 0, m.contract.revertOr(m.desc.Name, err)
	}
	return gas, nil
}

// Send broadcasts a transaction invoking the method and starts tracking it.
// Send returns as soon as the node accepts the transaction; inclusion and
// confirmations are reported through the returned Transaction. ctx bounds
// both the broadcast and the tracking.
func (m *Method) Send(ctx context.Context, opts *CallOptions, sendOpts ...SendOption) (*Transaction, error) {
	resolved, err := Resolve(m.desc, opts, m.contract.defaults)
	if err != nil {
		return nil, err
	}

	sc := &sendConfig{config: m.contract.config}
	for _, opt := range sendOpts {
		opt(sc)
	}

	hash, err := submit(ctx, m.contract.transport, m.contract.signer, resolved, m.EncodeABI())
	if err != nil {
		m.contract.log.Debug("broadcast failed",
			zap.String("method", m.desc.Name),
			zap.Error(err))
		return nil, err
	}

	log := m.contract.log.With(
		zap.String("method", m.desc.Name),
		zap.Stringer("tx", hash))
	log.Debug("transaction broadcast")

	tx := newTransaction(hash, m.desc.Name)
	for _, h := range sc.handlers {
		tx.subscribe(h.kinds, h.fn)
	}

	t := &tracker{
		tx:        tx,
		transport: m.contract.transport,
		config:    sc.config.normalize(),
		log:       log,
		metrics:   m.contract.metrics,
		method:    m.desc.Name,
	}
	tx.start(ctx, t.run)
	return tx, nil
}
