package ethcall

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// EventKind identifies a lifecycle event of a sent transaction.
type EventKind uint8

const (
	// EventTransactionHash is delivered once, right after the broadcast.
	EventTransactionHash EventKind = iota

	// EventReceipt is delivered when a receipt is found, and again if the
	// transaction is re-located after its block was displaced.
	EventReceipt

	// EventConfirmation carries each new confirmation count, strictly increasing.
	EventConfirmation

	// EventError is the terminal failure, delivered at most once.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventTransactionHash:
		return "transactionHash"
	case EventReceipt:
		return "receipt"
	case EventConfirmation:
		return "confirmation"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a single lifecycle notification. Only the fields relevant to Kind
// are set: Receipt for EventReceipt and EventConfirmation, Confirmations for
// EventConfirmation, Err for EventError.
type Event struct {
	Kind          EventKind
	Hash          common.Hash
	Receipt       *types.Receipt
	Confirmations uint64
	Err           error
}
