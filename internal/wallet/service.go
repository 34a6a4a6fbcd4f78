package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/campus-pay/campus_pay/internal/ledger"
	"github.com/campus-pay/campus_pay/internal/notification"
)

// maxInfoBytes bounds the encoded size of the caller-supplied info payload.
const maxInfoBytes = 4096

var (
	// ErrHolderRequired indicates a missing or blank holder identifier.
	ErrHolderRequired = errors.New("holder_id is required")

	// ErrInfoTooLarge indicates the info payload exceeds the documented bound.
	ErrInfoTooLarge = fmt.Errorf("info payload exceeds %d bytes", maxInfoBytes)
)

// Service is the command interface consumed by the HTTP adapter. It validates
// input shape and delegates every invariant to the ledger engine.
type Service struct {
	ledger   ledger.Ledger
	notifier notification.Notifier
}

// NewService builds a wallet command service.
func NewService(ledgerBackend ledger.Ledger, notifier notification.Notifier) *Service {
	return &Service{ledger: ledgerBackend, notifier: notifier}
}

// MovementInput captures a requested credit or debit.
type MovementInput struct {
	HolderID          string
	Amount            int64
	ExternalReference string
	Info              ledger.Info
}

// Create provisions a wallet with zero balance for the holder.
func (s *Service) Create(ctx context.Context, holderID string) (ledger.Wallet, error) {
	holderID = strings.TrimSpace(holderID)
	if holderID == "" {
		return ledger.Wallet{}, ErrHolderRequired
	}
	return s.ledger.CreateWallet(ctx, holderID)
}

// Get returns the current wallet snapshot.
func (s *Service) Get(ctx context.Context, holderID string) (ledger.Wallet, error) {
	if holderID == "" {
		return ledger.Wallet{}, ErrHolderRequired
	}
	return s.ledger.Wallet(ctx, holderID)
}

// Credit posts funds into the holder's wallet and returns the created entry.
func (s *Service) Credit(ctx context.Context, input MovementInput) (ledger.Transaction, error) {
	if err := validateMovement(input); err != nil {
		return ledger.Transaction{}, err
	}
	txn, err := s.ledger.Credit(ctx, ledger.MovementInput(input))
	if err != nil {
		return ledger.Transaction{}, err
	}
	s.notify(ctx, notification.KindCreditPosted, txn)
	return txn, nil
}

// Debit withdraws funds from the holder's wallet and returns the created entry.
func (s *Service) Debit(ctx context.Context, input MovementInput) (ledger.Transaction, error) {
	if err := validateMovement(input); err != nil {
		return ledger.Transaction{}, err
	}
	txn, err := s.ledger.Debit(ctx, ledger.MovementInput(input))
	if err != nil {
		return ledger.Transaction{}, err
	}
	s.notify(ctx, notification.KindDebitPosted, txn)
	return txn, nil
}

// Freeze blocks all movements on the wallet until it is reactivated.
func (s *Service) Freeze(ctx context.Context, holderID string) (ledger.Wallet, error) {
	if holderID == "" {
		return ledger.Wallet{}, ErrHolderRequired
	}
	return s.ledger.SetWalletStatus(ctx, holderID, ledger.StatusFrozen)
}

// Unfreeze reactivates a frozen wallet.
func (s *Service) Unfreeze(ctx context.Context, holderID string) (ledger.Wallet, error) {
	if holderID == "" {
		return ledger.Wallet{}, ErrHolderRequired
	}
	return s.ledger.SetWalletStatus(ctx, holderID, ledger.StatusActive)
}

// Transactions returns the wallet's history as a point-in-time snapshot in
// creation order.
func (s *Service) Transactions(ctx context.Context, holderID string) ([]ledger.Transaction, error) {
	if holderID == "" {
		return nil, ErrHolderRequired
	}
	return s.ledger.Transactions(ctx, holderID)
}

func (s *Service) notify(ctx context.Context, kind string, txn ledger.Transaction) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{
		Kind:          kind,
		HolderID:      txn.WalletID,
		TransactionID: txn.ID,
		Amount:        txn.Amount,
		Reference:     txn.ExternalReference,
	})
}

func validateMovement(input MovementInput) error {
	if strings.TrimSpace(input.HolderID) == "" {
		return ErrHolderRequired
	}
	if input.Amount <= 0 {
		return ledger.ErrInvalidAmount
	}
	if len(input.Info) > 0 {
		encoded, err := json.Marshal(input.Info)
		if err != nil {
			return fmt.Errorf("encode info: %w", err)
		}
		if len(encoded) > maxInfoBytes {
			return ErrInfoTooLarge
		}
	}
	return nil
}
