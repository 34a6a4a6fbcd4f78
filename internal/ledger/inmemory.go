package ledger

import (
	"context"
	"sync"
	"time"
)

// walletEntry owns its own lock so contention on one wallet never stalls
// movements on unrelated wallets.
type walletEntry struct {
	mu      sync.Mutex
	wallet  Wallet
	history []Transaction
}

type inMemoryLedger struct {
	mu      sync.RWMutex
	wallets map[string]*walletEntry
	nextID  int64
	idMu    sync.Mutex
	opts    options
}

// NewInMemory creates a concurrency-safe in-memory ledger. It backs unit tests
// and the dev-mode server where no database is configured.
func NewInMemory(opts ...Option) Ledger {
	return &inMemoryLedger{
		wallets: make(map[string]*walletEntry),
		opts:    buildOptions(opts),
	}
}

func (l *inMemoryLedger) CreateWallet(_ context.Context, holderID string) (Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.wallets[holderID]; exists {
		return Wallet{}, ErrWalletExists
	}
	now := time.Now().UTC()
	entry := &walletEntry{wallet: Wallet{
		HolderID:  holderID,
		Balance:   0,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	l.wallets[holderID] = entry
	return entry.wallet, nil
}

func (l *inMemoryLedger) Wallet(_ context.Context, holderID string) (Wallet, error) {
	entry, err := l.entry(holderID)
	if err != nil {
		return Wallet{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.wallet, nil
}

func (l *inMemoryLedger) SetWalletStatus(_ context.Context, holderID string, status Status) (Wallet, error) {
	entry, err := l.entry(holderID)
	if err != nil {
		return Wallet{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.wallet.Status = status
	entry.wallet.UpdatedAt = time.Now().UTC()
	return entry.wallet, nil
}

func (l *inMemoryLedger) Credit(ctx context.Context, input MovementInput) (Transaction, error) {
	return l.move(ctx, KindCredit, input)
}

func (l *inMemoryLedger) Debit(ctx context.Context, input MovementInput) (Transaction, error) {
	return l.move(ctx, KindDebit, input)
}

func (l *inMemoryLedger) Transactions(_ context.Context, holderID string) ([]Transaction, error) {
	entry, err := l.entry(holderID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	snapshot := make([]Transaction, len(entry.history))
	copy(snapshot, entry.history)
	return snapshot, nil
}

// move applies a credit or debit under the wallet's own lock. The balance
// mutation and the history append happen inside the same critical section, so
// no reader observes one without the other.
func (l *inMemoryLedger) move(ctx context.Context, kind Kind, input MovementInput) (Transaction, error) {
	if input.Amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	entry, err := l.entry(input.HolderID)
	if err != nil {
		return Transaction{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Transaction{}, err
	}
	if entry.wallet.Status == StatusFrozen {
		return Transaction{}, ErrWalletFrozen
	}
	if l.opts.strictReferences && input.ExternalReference != "" {
		for i := range entry.history {
			if entry.history[i].ExternalReference == input.ExternalReference {
				return Transaction{}, ErrDuplicateReference
			}
		}
	}

	newBalance := entry.wallet.Balance
	switch kind {
	case KindCredit:
		newBalance += input.Amount
	case KindDebit:
		if entry.wallet.Balance < input.Amount {
			return Transaction{}, ErrInsufficientFunds
		}
		newBalance -= input.Amount
	}

	now := time.Now().UTC()
	txn := Transaction{
		ID:                l.assignID(),
		WalletID:          input.HolderID,
		Kind:              kind,
		Amount:            input.Amount,
		BalanceAfter:      newBalance,
		ExternalReference: input.ExternalReference,
		Info:              cloneInfo(input.Info),
		CreatedAt:         now,
	}

	entry.wallet.Balance = newBalance
	entry.wallet.UpdatedAt = now
	entry.history = append(entry.history, txn)
	return txn, nil
}

func (l *inMemoryLedger) entry(holderID string) (*walletEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.wallets[holderID]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return entry, nil
}

func (l *inMemoryLedger) assignID() int64 {
	l.idMu.Lock()
	defer l.idMu.Unlock()
	l.nextID++
	return l.nextID
}
