package wallet

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-pay/campus_pay/internal/ledger"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()
	led := ledger.NewInMemory()
	h := NewHandler(NewService(led, nil))

	app := fiber.New()
	app.Post("/wallets", h.Create)
	app.Get("/wallets/:holderId", h.Get)
	app.Post("/wallets/:holderId/credit", h.Credit)
	app.Post("/wallets/:holderId/debit", h.Debit)
	app.Get("/wallets/:holderId/transactions", h.Transactions)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	payload := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("%s %s: decode body %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, payload
}

func TestHandlerWalletLifecycle(t *testing.T) {
	app := setupTestApp(t)

	status, body := doJSON(t, app, fiber.MethodPost, "/wallets", `{"holder_id":"202110001"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("create: expected 201, got %d", status)
	}
	if body["holder_id"] != "202110001" || body["balance"] != float64(0) {
		t.Fatalf("unexpected create body: %v", body)
	}

	status, _ = doJSON(t, app, fiber.MethodPost, "/wallets", `{"holder_id":"202110001"}`)
	if status != fiber.StatusConflict {
		t.Fatalf("duplicate create: expected 409, got %d", status)
	}

	status, body = doJSON(t, app, fiber.MethodPost, "/wallets/202110001/credit",
		`{"amount":5000,"external_reference":"topup-1","info":{"payment_method":"YAPE"}}`)
	if status != fiber.StatusCreated {
		t.Fatalf("credit: expected 201, got %d (%v)", status, body)
	}
	if body["kind"] != "CREDIT" || body["balance_after"] != float64(5000) {
		t.Fatalf("unexpected credit body: %v", body)
	}

	status, body = doJSON(t, app, fiber.MethodPost, "/wallets/202110001/debit",
		`{"amount":2000,"external_reference":"order-9"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("debit: expected 201, got %d (%v)", status, body)
	}
	if body["balance_after"] != float64(3000) {
		t.Fatalf("unexpected debit body: %v", body)
	}

	status, body = doJSON(t, app, fiber.MethodPost, "/wallets/202110001/debit", `{"amount":5000}`)
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("overdraft debit: expected 422, got %d (%v)", status, body)
	}

	status, body = doJSON(t, app, fiber.MethodGet, "/wallets/202110001", "")
	if status != fiber.StatusOK || body["balance"] != float64(3000) {
		t.Fatalf("get: expected 200/3000, got %d (%v)", status, body)
	}
}

func TestHandlerTransactionsList(t *testing.T) {
	app := setupTestApp(t)

	doJSON(t, app, fiber.MethodPost, "/wallets", `{"holder_id":"u1"}`)
	doJSON(t, app, fiber.MethodPost, "/wallets/u1/credit", `{"amount":300,"external_reference":"a"}`)
	doJSON(t, app, fiber.MethodPost, "/wallets/u1/debit", `{"amount":100,"external_reference":"b"}`)

	req := httptest.NewRequest(fiber.MethodGet, "/wallets/u1/transactions", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}

	var entries []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0]["kind"] != "CREDIT" || entries[1]["kind"] != "DEBIT" {
		t.Fatalf("unexpected order: %v", entries)
	}
	if entries[1]["balance_after"] != float64(200) {
		t.Fatalf("unexpected balance_after: %v", entries[1])
	}
}

func TestHandlerUnknownWallet(t *testing.T) {
	app := setupTestApp(t)

	status, _ := doJSON(t, app, fiber.MethodGet, "/wallets/ghost", "")
	if status != fiber.StatusNotFound {
		t.Fatalf("get: expected 404, got %d", status)
	}
	status, _ = doJSON(t, app, fiber.MethodPost, "/wallets/ghost/credit", `{"amount":100}`)
	if status != fiber.StatusNotFound {
		t.Fatalf("credit: expected 404, got %d", status)
	}
	status, _ = doJSON(t, app, fiber.MethodPost, "/wallets/ghost/debit", `{"amount":100}`)
	if status != fiber.StatusNotFound {
		t.Fatalf("debit: expected 404, got %d", status)
	}
}
