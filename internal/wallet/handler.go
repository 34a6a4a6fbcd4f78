package wallet

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-pay/campus_pay/internal/ledger"
)

// Handler exposes the wallet command interface over HTTP.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	HolderID string `json:"holder_id"`
}

type movementRequest struct {
	Amount            int64             `json:"amount"`
	ExternalReference string            `json:"external_reference"`
	Info              map[string]string `json:"info"`
}

type walletResponse struct {
	HolderID  string `json:"holder_id"`
	Balance   int64  `json:"balance"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type transactionResponse struct {
	ID                int64             `json:"id"`
	WalletID          string            `json:"wallet_id"`
	Kind              string            `json:"kind"`
	Amount            int64             `json:"amount"`
	BalanceAfter      int64             `json:"balance_after"`
	ExternalReference string            `json:"external_reference,omitempty"`
	Info              map[string]string `json:"info,omitempty"`
	CreatedAt         string            `json:"created_at"`
}

// Create provisions a wallet for a holder.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.Create(c.UserContext(), req.HolderID)
	if err != nil {
		return asHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(renderWallet(w))
}

// Get returns the wallet snapshot for a holder.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, err := h.service.Get(c.UserContext(), c.Params("holderId"))
	if err != nil {
		return asHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(renderWallet(w))
}

// Credit posts funds into a wallet.
func (h *Handler) Credit(c *fiber.Ctx) error {
	return h.move(c, h.service.Credit)
}

// Debit withdraws funds from a wallet.
func (h *Handler) Debit(c *fiber.Ctx) error {
	return h.move(c, h.service.Debit)
}

// Freeze blocks movements on a wallet.
func (h *Handler) Freeze(c *fiber.Ctx) error {
	w, err := h.service.Freeze(c.UserContext(), c.Params("holderId"))
	if err != nil {
		return asHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(renderWallet(w))
}

// Unfreeze reactivates a frozen wallet.
func (h *Handler) Unfreeze(c *fiber.Ctx) error {
	w, err := h.service.Unfreeze(c.UserContext(), c.Params("holderId"))
	if err != nil {
		return asHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(renderWallet(w))
}

// Transactions lists the wallet's ledger entries in creation order.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	history, err := h.service.Transactions(c.UserContext(), c.Params("holderId"))
	if err != nil {
		return asHTTPError(err)
	}
	out := make([]transactionResponse, 0, len(history))
	for _, txn := range history {
		out = append(out, renderTransaction(txn))
	}
	return c.Status(http.StatusOK).JSON(out)
}

func (h *Handler) move(c *fiber.Ctx, post func(ctx context.Context, input MovementInput) (ledger.Transaction, error)) error {
	var req movementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	txn, err := post(c.UserContext(), MovementInput{
		HolderID:          c.Params("holderId"),
		Amount:            req.Amount,
		ExternalReference: req.ExternalReference,
		Info:              ledger.Info(req.Info),
	})
	if err != nil {
		return asHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(renderTransaction(txn))
}

func renderWallet(w ledger.Wallet) walletResponse {
	return walletResponse{
		HolderID:  w.HolderID,
		Balance:   w.Balance,
		Status:    string(w.Status),
		CreatedAt: w.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: w.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func renderTransaction(txn ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:                txn.ID,
		WalletID:          txn.WalletID,
		Kind:              string(txn.Kind),
		Amount:            txn.Amount,
		BalanceAfter:      txn.BalanceAfter,
		ExternalReference: txn.ExternalReference,
		Info:              txn.Info,
		CreatedAt:         txn.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// asHTTPError maps engine failures to distinguishable HTTP statuses so the
// orchestrator can decide whether to retry, surface, or alert.
func asHTTPError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrWalletNotFound):
		return fiber.NewError(http.StatusNotFound, "wallet not found")
	case errors.Is(err, ledger.ErrWalletExists):
		return fiber.NewError(http.StatusConflict, "wallet already exists")
	case errors.Is(err, ledger.ErrWalletFrozen):
		return fiber.NewError(http.StatusConflict, "wallet is frozen")
	case errors.Is(err, ledger.ErrDuplicateReference):
		return fiber.NewError(http.StatusConflict, "duplicate external reference")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusUnprocessableEntity, "insufficient funds")
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ErrHolderRequired),
		errors.Is(err, ErrInfoTooLarge):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrConflict):
		return fiber.NewError(http.StatusServiceUnavailable, "temporary conflict, retry the operation")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
