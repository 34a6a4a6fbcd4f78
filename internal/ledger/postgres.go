package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolationCode     = "23505"
	serializationFailure    = "40001"
	deadlockDetected        = "40P01"
	maxMovementAttempts     = 3
	walletSelectForUpdate   = `SELECT balance, status FROM wallets WHERE holder_id = $1 FOR UPDATE`
	transactionInsertReturn = `INSERT INTO transactions (wallet_id, kind, amount, balance_after, external_reference, info)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
)

// PostgresLedger persists wallets and their transaction log in PostgreSQL.
// Every movement runs inside a single storage transaction scoped to exactly
// the wallet update plus the log append.
type PostgresLedger struct {
	db   *pgxpool.Pool
	opts options
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool, opts ...Option) *PostgresLedger {
	return &PostgresLedger{db: db, opts: buildOptions(opts)}
}

// CreateWallet inserts a zero-balance active wallet for the holder.
func (l *PostgresLedger) CreateWallet(ctx context.Context, holderID string) (Wallet, error) {
	w := Wallet{HolderID: holderID, Balance: 0, Status: StatusActive}
	err := l.db.QueryRow(ctx, `INSERT INTO wallets (holder_id, balance, status)
        VALUES ($1, 0, $2) RETURNING created_at, updated_at`, holderID, StatusActive).
		Scan(&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return Wallet{}, ErrWalletExists
		}
		return Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	return w, nil
}

// Wallet returns the current wallet snapshot for the holder.
func (l *PostgresLedger) Wallet(ctx context.Context, holderID string) (Wallet, error) {
	w := Wallet{HolderID: holderID}
	err := l.db.QueryRow(ctx, `SELECT balance, status, created_at, updated_at
        FROM wallets WHERE holder_id = $1`, holderID).
		Scan(&w.Balance, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// SetWalletStatus freezes or reactivates a wallet.
func (l *PostgresLedger) SetWalletStatus(ctx context.Context, holderID string, status Status) (Wallet, error) {
	w := Wallet{HolderID: holderID, Status: status}
	err := l.db.QueryRow(ctx, `UPDATE wallets SET status = $2, updated_at = now()
        WHERE holder_id = $1 RETURNING balance, created_at, updated_at`, holderID, status).
		Scan(&w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, fmt.Errorf("set wallet status: %w", err)
	}
	return w, nil
}

// Credit posts a positive movement into the wallet.
func (l *PostgresLedger) Credit(ctx context.Context, input MovementInput) (Transaction, error) {
	return l.move(ctx, KindCredit, input)
}

// Debit posts a withdrawal from the wallet, rejecting overdrafts.
func (l *PostgresLedger) Debit(ctx context.Context, input MovementInput) (Transaction, error) {
	return l.move(ctx, KindDebit, input)
}

// Transactions returns the wallet's ledger entries in creation order.
func (l *PostgresLedger) Transactions(ctx context.Context, holderID string) ([]Transaction, error) {
	var exists bool
	if err := l.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE holder_id = $1)`, holderID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check wallet: %w", err)
	}
	if !exists {
		return nil, ErrWalletNotFound
	}

	rows, err := l.db.Query(ctx, `SELECT id, kind, amount, balance_after, external_reference, info, created_at
        FROM transactions WHERE wallet_id = $1 ORDER BY id`, holderID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		txn := Transaction{WalletID: holderID}
		var rawInfo []byte
		if err := rows.Scan(&txn.ID, &txn.Kind, &txn.Amount, &txn.BalanceAfter, &txn.ExternalReference, &rawInfo, &txn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if len(rawInfo) > 0 {
			if err := json.Unmarshal(rawInfo, &txn.Info); err != nil {
				return nil, fmt.Errorf("decode transaction info: %w", err)
			}
		}
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// move retries the atomic unit a bounded number of times on storage-level
// contention before surfacing ErrConflict.
func (l *PostgresLedger) move(ctx context.Context, kind Kind, input MovementInput) (Transaction, error) {
	if input.Amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}

	var lastErr error
	for attempt := 0; attempt < maxMovementAttempts; attempt++ {
		txn, err := l.moveOnce(ctx, kind, input)
		if err == nil {
			return txn, nil
		}
		if !isRetryable(err) {
			return Transaction{}, err
		}
		lastErr = err
	}
	return Transaction{}, fmt.Errorf("%w: %v", ErrConflict, lastErr)
}

func (l *PostgresLedger) moveOnce(ctx context.Context, kind Kind, input MovementInput) (Transaction, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return Transaction{}, fmt.Errorf("begin movement: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var (
		balance int64
		status  Status
	)
	if err := tx.QueryRow(ctx, walletSelectForUpdate, input.HolderID).Scan(&balance, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrWalletNotFound
		}
		return Transaction{}, fmt.Errorf("lock wallet: %w", err)
	}
	if status == StatusFrozen {
		return Transaction{}, ErrWalletFrozen
	}

	if l.opts.strictReferences && input.ExternalReference != "" {
		var existing int64
		err := tx.QueryRow(ctx, `SELECT id FROM transactions WHERE wallet_id = $1 AND external_reference = $2 LIMIT 1`,
			input.HolderID, input.ExternalReference).Scan(&existing)
		if err == nil {
			return Transaction{}, ErrDuplicateReference
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, fmt.Errorf("check reference: %w", err)
		}
	}

	newBalance := balance
	switch kind {
	case KindCredit:
		newBalance += input.Amount
	case KindDebit:
		if balance < input.Amount {
			return Transaction{}, ErrInsufficientFunds
		}
		newBalance -= input.Amount
	}

	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $2, updated_at = now() WHERE holder_id = $1`,
		input.HolderID, newBalance); err != nil {
		return Transaction{}, fmt.Errorf("update balance: %w", err)
	}

	info := input.Info
	if info == nil {
		info = Info{}
	}
	rawInfo, err := json.Marshal(info)
	if err != nil {
		return Transaction{}, fmt.Errorf("encode info: %w", err)
	}

	txn := Transaction{
		WalletID:          input.HolderID,
		Kind:              kind,
		Amount:            input.Amount,
		BalanceAfter:      newBalance,
		ExternalReference: input.ExternalReference,
		Info:              cloneInfo(input.Info),
	}
	if err := tx.QueryRow(ctx, transactionInsertReturn,
		input.HolderID, kind, input.Amount, newBalance, input.ExternalReference, rawInfo).
		Scan(&txn.ID, &txn.CreatedAt); err != nil {
		return Transaction{}, fmt.Errorf("append transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, fmt.Errorf("commit movement: %w", err)
	}
	return txn, nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == serializationFailure || pgErr.Code == deadlockDetected
}
