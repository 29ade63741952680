package handler

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the settlement API under /api/v1.
func RegisterRoutes(
	app *fiber.App,
	transfers *TransferHandler,
	batches *BatchHandler,
	transactions *TransactionHandler,
	rates *RateHandler,
	vaults *VaultHandler,
	counterparties *CounterpartyHandler,
) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	api.Post("/exchanges", transfers.SubmitExchange)
	api.Post("/cash-movements", transfers.SubmitCashMovement)
	api.Post("/bank-batches", batches.SubmitBatch)

	api.Get("/transactions", transactions.List)
	api.Get("/transactions/:id", transactions.Get)
	api.Post("/transactions/:id/confirm", transactions.Confirm)
	api.Post("/transactions/:id/cancel", transactions.Cancel)
	api.Post("/transactions/:id/deliver", transactions.Deliver)
	api.Post("/transactions/:id/approve", transactions.Approve)

	api.Get("/rates/current", rates.Current)
	api.Post("/rates", rates.Update)

	api.Get("/vaults", vaults.List)
	api.Get("/vaults/:id", vaults.Get)
	api.Post("/vaults/:id/credit", vaults.Credit)
	api.Post("/vaults/:id/debit", vaults.Debit)

	api.Get("/counterparties", counterparties.List)
	api.Get("/counterparties/:id", counterparties.Get)
	api.Post("/counterparties/:id/credit", counterparties.Credit)
	api.Post("/counterparties/:id/debit", counterparties.Debit)
}
