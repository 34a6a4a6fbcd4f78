package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrWalletNotFound occurs when no wallet exists for the requested holder.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletExists indicates a creation attempt for a holder that already has a wallet.
	ErrWalletExists = errors.New("wallet already exists")

	// ErrWalletFrozen indicates a movement was attempted against a frozen wallet.
	ErrWalletFrozen = errors.New("wallet is frozen")

	// ErrInvalidAmount indicates a zero or negative movement amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds occurs when a debit exceeds the available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateReference indicates the external reference was already recorded
	// for the same wallet while the strict-reference policy is active.
	ErrDuplicateReference = errors.New("duplicate external reference")

	// ErrConflict surfaces after the engine exhausted its internal retries on
	// storage-level contention. The operation left no trace and may be retried.
	ErrConflict = errors.New("concurrent update conflict")
)

// Status enumerates wallet lifecycle states. Wallets are never deleted, only frozen.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusFrozen Status = "FROZEN"
)

// Kind encodes the direction of a movement. Amounts are always positive
// magnitudes; direction lives here, never in the sign.
type Kind string

const (
	KindCredit Kind = "CREDIT"
	KindDebit  Kind = "DEBIT"
)

// Info carries caller-supplied metadata attached to a transaction. The engine
// stores and returns it verbatim and never interprets its contents.
type Info map[string]string

// Wallet is the current balance snapshot for a holder. Balance is an integer
// amount of minor units (cents) and never goes negative.
type Wallet struct {
	HolderID  string
	Balance   int64
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is one immutable ledger entry. BalanceAfter snapshots the wallet
// balance right after the entry was applied, so replaying amounts in id order
// from zero reproduces the current balance exactly.
type Transaction struct {
	ID                int64
	WalletID          string
	Kind              Kind
	Amount            int64
	BalanceAfter      int64
	ExternalReference string
	Info              Info
	CreatedAt         time.Time
}

// MovementInput captures the data required to post a credit or debit.
type MovementInput struct {
	HolderID          string
	Amount            int64
	ExternalReference string
	Info              Info
}

// Ledger is the contract implemented by ledger backends (Postgres, in-memory).
// All invariant enforcement lives behind it: the balance write and its log
// append commit together or not at all, and operations on the same wallet are
// serialized while unrelated wallets proceed in parallel.
type Ledger interface {
	CreateWallet(ctx context.Context, holderID string) (Wallet, error)
	Wallet(ctx context.Context, holderID string) (Wallet, error)
	SetWalletStatus(ctx context.Context, holderID string, status Status) (Wallet, error)
	Credit(ctx context.Context, input MovementInput) (Transaction, error)
	Debit(ctx context.Context, input MovementInput) (Transaction, error)
	Transactions(ctx context.Context, holderID string) ([]Transaction, error)
}

type options struct {
	strictReferences bool
}

// Option customises engine construction.
type Option func(*options)

// WithStrictReferences makes the engine reject a movement whose non-empty
// external reference was already recorded for the same wallet. The default
// allows repeated references (e.g. several charges against one reservation).
func WithStrictReferences() Option {
	return func(o *options) {
		o.strictReferences = true
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func cloneInfo(info Info) Info {
	if info == nil {
		return nil
	}
	out := make(Info, len(info))
	for k, v := range info {
		out[k] = v
	}
	return out
}
