package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campus-pay/campus_pay/internal/wallet"
)

// RegisterWalletRoutes wires the wallet command interface.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallets", h.Create)
	r.Get("/wallets/:holderId", h.Get)
	r.Post("/wallets/:holderId/credit", h.Credit)
	r.Post("/wallets/:holderId/debit", h.Debit)
	r.Post("/wallets/:holderId/freeze", h.Freeze)
	r.Post("/wallets/:holderId/unfreeze", h.Unfreeze)
	r.Get("/wallets/:holderId/transactions", h.Transactions)
}
