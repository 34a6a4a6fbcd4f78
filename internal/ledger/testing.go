package ledger

import "time"

// SeedWallet is a test helper that installs a wallet with the given balance
// when using the in-memory ledger. The seeded balance is not reflected in the
// transaction history.
func SeedWallet(l Ledger, holderID string, balance int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		now := time.Now().UTC()
		mem.wallets[holderID] = &walletEntry{wallet: Wallet{
			HolderID:  holderID,
			Balance:   balance,
			Status:    StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}}
	}
}
