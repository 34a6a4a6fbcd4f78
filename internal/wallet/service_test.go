package wallet

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/campus-pay/campus_pay/internal/ledger"
	"github.com/campus-pay/campus_pay/internal/notification"
)

type testNotifier struct {
	messages []notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.messages = append(n.messages, msg)
	return nil
}

func TestServiceCreateGetAndMove(t *testing.T) {
	led := ledger.NewInMemory()
	notifier := &testNotifier{}
	svc := NewService(led, notifier)
	ctx := context.Background()

	w, err := svc.Create(ctx, "  202110001 ")
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if w.HolderID != "202110001" {
		t.Fatalf("expected trimmed holder id, got %q", w.HolderID)
	}

	if _, err := svc.Create(ctx, "202110001"); !errors.Is(err, ledger.ErrWalletExists) {
		t.Fatalf("expected ErrWalletExists, got %v", err)
	}

	credit, err := svc.Credit(ctx, MovementInput{
		HolderID:          "202110001",
		Amount:            5_000,
		ExternalReference: "topup-1",
		Info:              ledger.Info{"payment_method": "YAPE"},
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if credit.BalanceAfter != 5_000 {
		t.Fatalf("expected balance_after 5000, got %d", credit.BalanceAfter)
	}

	debit, err := svc.Debit(ctx, MovementInput{HolderID: "202110001", Amount: 2_000, ExternalReference: "order-9"})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if debit.BalanceAfter != 3_000 {
		t.Fatalf("expected balance_after 3000, got %d", debit.BalanceAfter)
	}

	fetched, err := svc.Get(ctx, "202110001")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if fetched.Balance != 3_000 {
		t.Fatalf("expected balance 3000, got %d", fetched.Balance)
	}

	if len(notifier.messages) != 2 {
		t.Fatalf("expected 2 movement events, got %d", len(notifier.messages))
	}
	if notifier.messages[0].Kind != notification.KindCreditPosted || notifier.messages[1].Kind != notification.KindDebitPosted {
		t.Fatalf("unexpected event kinds: %+v", notifier.messages)
	}
	if notifier.messages[1].Reference != "order-9" {
		t.Fatalf("expected reference order-9, got %q", notifier.messages[1].Reference)
	}
}

func TestServiceValidation(t *testing.T) {
	svc := NewService(ledger.NewInMemory(), nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "   "); !errors.Is(err, ErrHolderRequired) {
		t.Fatalf("expected ErrHolderRequired, got %v", err)
	}
	if _, err := svc.Credit(ctx, MovementInput{HolderID: "", Amount: 100}); !errors.Is(err, ErrHolderRequired) {
		t.Fatalf("expected ErrHolderRequired, got %v", err)
	}
	if _, err := svc.Debit(ctx, MovementInput{HolderID: "u1", Amount: 0}); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestServiceInfoBound(t *testing.T) {
	led := ledger.NewInMemory()
	svc := NewService(led, nil)
	ctx := context.Background()
	ledger.SeedWallet(led, "u1", 10_000)

	oversized := ledger.Info{"blob": strings.Repeat("x", maxInfoBytes)}
	if _, err := svc.Credit(ctx, MovementInput{HolderID: "u1", Amount: 100, Info: oversized}); !errors.Is(err, ErrInfoTooLarge) {
		t.Fatalf("expected ErrInfoTooLarge, got %v", err)
	}

	// The rejected movement must leave no trace.
	history, err := svc.Transactions(ctx, "u1")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(history))
	}
}

func TestServiceFreezeRoundTrip(t *testing.T) {
	led := ledger.NewInMemory()
	svc := NewService(led, nil)
	ctx := context.Background()
	ledger.SeedWallet(led, "u1", 1_000)

	frozen, err := svc.Freeze(ctx, "u1")
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if frozen.Status != ledger.StatusFrozen {
		t.Fatalf("expected FROZEN, got %s", frozen.Status)
	}

	if _, err := svc.Debit(ctx, MovementInput{HolderID: "u1", Amount: 100}); !errors.Is(err, ledger.ErrWalletFrozen) {
		t.Fatalf("expected ErrWalletFrozen, got %v", err)
	}

	active, err := svc.Unfreeze(ctx, "u1")
	if err != nil {
		t.Fatalf("unfreeze: %v", err)
	}
	if active.Status != ledger.StatusActive {
		t.Fatalf("expected ACTIVE, got %s", active.Status)
	}
	if _, err := svc.Debit(ctx, MovementInput{HolderID: "u1", Amount: 100}); err != nil {
		t.Fatalf("debit after unfreeze: %v", err)
	}
}
