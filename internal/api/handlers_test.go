package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/emart-ops/emart-core/internal/approval"
	"github.com/emart-ops/emart-core/internal/auth"
	"github.com/emart-ops/emart-core/internal/inventory"
	"github.com/emart-ops/emart-core/internal/invoice"
)

// doJSON issues an authenticated JSON request against the router.
func doJSON(t *testing.T, router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// createItemViaAPI creates a catalogue item and returns it.
func createItemViaAPI(t *testing.T, router http.Handler, token, sku, name string) inventory.Item {
	t.Helper()

	body := fmt.Sprintf(`{"sku": %q, "name": %q, "unit_price_cents": 150}`, sku, name)
	w := doJSON(t, router, http.MethodPost, "/api/inventory", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create item status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var item inventory.Item
	if err := json.Unmarshal(w.Body.Bytes(), &item); err != nil {
		t.Fatalf("unmarshal item: %v", err)
	}
	return item
}

// ─── Inventory Tests ───────────────────────────────────────────────

func TestListItems_Empty(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	maker := seedTestUser(t, srv, "maker1", auth.RoleMaker)

	w := doJSON(t, router, http.MethodGet, "/api/inventory", "", tokenFor(t, maker))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if int(resp["count"].(float64)) != 0 {
		t.Errorf("count = %v, want 0", resp["count"])
	}
}

func TestCreateAndGetItem(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	maker := seedTestUser(t, srv, "maker1", auth.RoleMaker)
	token := tokenFor(t, maker)

	item := createItemViaAPI(t, router, token, "MILK-1L", "Whole Milk 1L")

	if item.ID == "" {
		t.Error("expected item ID to be auto-generated")
	}
	if item.CreatedBy != maker.ID {
		t.Errorf("created_by = %q, want %q", item.CreatedBy, maker.ID)
	}

	w := doJSON(t, router, http.MethodGet, "/api/inventory/"+item.ID, "", token)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d", w.Code, http.StatusOK)
	}

	var got inventory.Item
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.SKU != "MILK-1L" {
		t.Errorf("sku = %q, want MILK-1L", got.SKU)
	}
}

func TestCreateItem_DuplicateSKU(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	token := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))

	createItemViaAPI(t, router, token, "MILK-1L", "Whole Milk 1L")

	body := `{"sku": "MILK-1L", "name": "Another Milk"}`
	w := doJSON(t, router, http.MethodPost, "/api/inventory", body, token)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestCreateItem_Validation(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	token := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))

	tests := []struct {
		name string
		body string
	}{
		{"missing sku", `{"name": "No SKU"}`},
		{"missing name", `{"sku": "X-1"}`},
		{"negative price", `{"sku": "X-1", "name": "X", "unit_price_cents": -5}`},
		{"bad expiry", `{"sku": "X-1", "name": "X", "expiry_date": "tomorrow"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/inventory", tt.body, token)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusBadRequest, w.Body.String())
			}
		})
	}
}

func TestUpdateItem_Partial(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	token := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))

	item := createItemViaAPI(t, router, token, "RICE-5KG", "Basmati Rice 5kg")

	body := `{"name": "Basmati Rice 5kg (Premium)"}`
	w := doJSON(t, router, http.MethodPatch, "/api/inventory/"+item.ID, body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var updated inventory.Item
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if updated.Name != "Basmati Rice 5kg (Premium)" {
		t.Errorf("name = %q, want updated name", updated.Name)
	}
	// Untouched fields survive the patch
	if updated.SKU != "RICE-5KG" {
		t.Errorf("sku = %q, want RICE-5KG", updated.SKU)
	}
	if updated.UnitPriceCents != 150 {
		t.Errorf("unit_price_cents = %d, want 150", updated.UnitPriceCents)
	}
}

func TestDeleteItem_ManagerOnly(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	makerToken := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))
	managerToken := tokenFor(t, seedTestUser(t, srv, "manager1", auth.RoleManager))

	item := createItemViaAPI(t, router, makerToken, "EGGS-12", "Eggs Dozen")

	// Maker cannot delete
	w := doJSON(t, router, http.MethodDelete, "/api/inventory/"+item.ID, "", makerToken)
	if w.Code != http.StatusForbidden {
		t.Errorf("maker delete status = %d, want %d", w.Code, http.StatusForbidden)
	}

	// Manager can
	w = doJSON(t, router, http.MethodDelete, "/api/inventory/"+item.ID, "", managerToken)
	if w.Code != http.StatusNoContent {
		t.Errorf("manager delete status = %d, want %d", w.Code, http.StatusNoContent)
	}

	// Confirm gone
	w = doJSON(t, router, http.MethodGet, "/api/inventory/"+item.ID, "", makerToken)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestExpiringItems(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	token := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))

	soon := time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)
	far := time.Now().UTC().Add(90 * 24 * time.Hour).Format(time.RFC3339)

	body := fmt.Sprintf(`{"sku": "YOG-1", "name": "Yoghurt", "expiry_date": %q}`, soon)
	if w := doJSON(t, router, http.MethodPost, "/api/inventory", body, token); w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	body = fmt.Sprintf(`{"sku": "TIN-1", "name": "Tinned Beans", "expiry_date": %q}`, far)
	if w := doJSON(t, router, http.MethodPost, "/api/inventory", body, token); w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}

	w := doJSON(t, router, http.MethodGet, "/api/inventory/expiring?days=7", "", token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if int(resp["count"].(float64)) != 1 {
		t.Errorf("count = %v, want 1 (only the yoghurt)", resp["count"])
	}
}

// ─── Stock Tests ───────────────────────────────────────────────────

func TestAdjustStock_UpAndDown(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	token := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))

	item := createItemViaAPI(t, router, token, "MILK-1L", "Whole Milk 1L")

	w := doJSON(t, router, http.MethodPost, "/api/stock/"+item.ID+"/adjust",
		`{"delta": 20, "reason": "delivery"}`, token)
	if w.Code != http.StatusOK {
		t.Fatalf("adjust up status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var movement inventory.Movement
	if err := json.Unmarshal(w.Body.Bytes(), &movement); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if movement.QuantityAfter != 20 {
		t.Errorf("quantity_after = %d, want 20", movement.QuantityAfter)
	}

	w = doJSON(t, router, http.MethodPost, "/api/stock/"+item.ID+"/adjust",
		`{"delta": -5, "reason": "sale"}`, token)
	if w.Code != http.StatusOK {
		t.Fatalf("adjust down status = %d; body: %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &movement); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if movement.QuantityAfter != 15 {
		t.Errorf("quantity_after = %d, want 15", movement.QuantityAfter)
	}
}

func TestAdjustStock_Insufficient(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	token := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))

	item := createItemViaAPI(t, router, token, "MILK-1L", "Whole Milk 1L")

	w := doJSON(t, router, http.MethodPost, "/api/stock/"+item.ID+"/adjust",
		`{"delta": -1, "reason": "oversell"}`, token)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}

	// Level untouched by the failed adjustment
	w = doJSON(t, router, http.MethodGet, "/api/stock/"+item.ID, "", token)
	var level inventory.StockLevel
	if err := json.Unmarshal(w.Body.Bytes(), &level); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if level.Quantity != 0 {
		t.Errorf("quantity = %d, want 0", level.Quantity)
	}
}

func TestAdjustStock_ZeroDelta(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	token := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))

	item := createItemViaAPI(t, router, token, "MILK-1L", "Whole Milk 1L")

	w := doJSON(t, router, http.MethodPost, "/api/stock/"+item.ID+"/adjust",
		`{"delta": 0, "reason": "noop"}`, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAdjustStock_UnknownItem(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	token := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))

	w := doJSON(t, router, http.MethodPost, "/api/stock/itm-ghost/adjust",
		`{"delta": 5, "reason": "test"}`, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestStockHistory(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	token := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))

	item := createItemViaAPI(t, router, token, "MILK-1L", "Whole Milk 1L")

	for _, delta := range []int{10, -3, 5} {
		body := fmt.Sprintf(`{"delta": %d, "reason": "test"}`, delta)
		if w := doJSON(t, router, http.MethodPost, "/api/stock/"+item.ID+"/adjust", body, token); w.Code != http.StatusOK {
			t.Fatalf("adjust %d: %d %s", delta, w.Code, w.Body.String())
		}
	}

	w := doJSON(t, router, http.MethodGet, "/api/stock/"+item.ID+"/history", "", token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Movements []inventory.Movement `json:"movements"`
		Count     int                  `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 3 {
		t.Fatalf("count = %d, want 3", resp.Count)
	}
	// Newest first
	if resp.Movements[0].Delta != 5 {
		t.Errorf("first movement delta = %d, want 5", resp.Movements[0].Delta)
	}
}

func TestStockLow_BroadcastOnThresholdBreach(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	makerToken := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))
	managerToken := tokenFor(t, seedTestUser(t, srv, "manager1", auth.RoleManager))

	item := createItemViaAPI(t, router, makerToken, "MILK-1L", "Whole Milk 1L")

	if w := doJSON(t, router, http.MethodPost, "/api/stock/"+item.ID+"/adjust",
		`{"delta": 10, "reason": "delivery"}`, makerToken); w.Code != http.StatusOK {
		t.Fatalf("seed stock: %d %s", w.Code, w.Body.String())
	}

	if w := doJSON(t, router, http.MethodPut, "/api/thresholds/"+item.ID,
		`{"min_quantity": 5}`, managerToken); w.Code != http.StatusOK {
		t.Fatalf("set threshold: %d %s", w.Code, w.Body.String())
	}

	// Listen on the low-stock channel
	client := &WSClient{
		hub:           srv.hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{ChannelStockLow: {}},
	}
	srv.hub.Register(client)

	// Drop to the threshold exactly: breach is quantity <= min_quantity
	if w := doJSON(t, router, http.MethodPost, "/api/stock/"+item.ID+"/adjust",
		`{"delta": -5, "reason": "sale"}`, makerToken); w.Code != http.StatusOK {
		t.Fatalf("adjust: %d %s", w.Code, w.Body.String())
	}

	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.EventType != ChannelStockLow {
			t.Errorf("event_type = %q, want %q", wsMsg.EventType, ChannelStockLow)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for stock.low broadcast")
	}
}

func TestStockAlerts(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	makerToken := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))
	managerToken := tokenFor(t, seedTestUser(t, srv, "manager1", auth.RoleManager))

	item := createItemViaAPI(t, router, makerToken, "MILK-1L", "Whole Milk 1L")

	if w := doJSON(t, router, http.MethodPut, "/api/thresholds/"+item.ID,
		`{"min_quantity": 5}`, managerToken); w.Code != http.StatusOK {
		t.Fatalf("set threshold: %d %s", w.Code, w.Body.String())
	}

	// Quantity 0 <= threshold 5, so the item is in breach
	w := doJSON(t, router, http.MethodGet, "/api/stock/alerts", "", makerToken)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Alerts []inventory.Breach `json:"alerts"`
		Count  int                `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	if resp.Alerts[0].Item.ID != item.ID {
		t.Errorf("breach item = %q, want %q", resp.Alerts[0].Item.ID, item.ID)
	}
}

// ─── Threshold Tests ───────────────────────────────────────────────

func TestSetThreshold_UnknownItem(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	managerToken := tokenFor(t, seedTestUser(t, srv, "manager1", auth.RoleManager))

	w := doJSON(t, router, http.MethodPut, "/api/thresholds/itm-ghost",
		`{"min_quantity": 5}`, managerToken)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestRemoveThreshold(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	makerToken := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))
	managerToken := tokenFor(t, seedTestUser(t, srv, "manager1", auth.RoleManager))

	item := createItemViaAPI(t, router, makerToken, "MILK-1L", "Whole Milk 1L")

	if w := doJSON(t, router, http.MethodPut, "/api/thresholds/"+item.ID,
		`{"min_quantity": 5}`, managerToken); w.Code != http.StatusOK {
		t.Fatalf("set threshold: %d %s", w.Code, w.Body.String())
	}

	w := doJSON(t, router, http.MethodDelete, "/api/thresholds/"+item.ID, "", managerToken)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want %d", w.Code, http.StatusNoContent)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/thresholds/"+item.ID, "", managerToken)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Invoice Tests ─────────────────────────────────────────────────

func TestInvoiceLifecycle_FinalisePostsStock(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	token := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))

	item := createItemViaAPI(t, router, token, "MILK-1L", "Whole Milk 1L")

	body := fmt.Sprintf(`{
		"number": "INV-001",
		"supplier": "Dairy Co",
		"lines": [{"item_id": %q, "quantity": 24, "unit_price_cents": 90}]
	}`, item.ID)
	w := doJSON(t, router, http.MethodPost, "/api/invoices", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create invoice status = %d; body: %s", w.Code, w.Body.String())
	}

	var inv invoice.Invoice
	if err := json.Unmarshal(w.Body.Bytes(), &inv); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if inv.Status != invoice.StatusDraft {
		t.Errorf("status = %q, want draft", inv.Status)
	}
	if inv.TotalCents != 24*90 {
		t.Errorf("total_cents = %d, want %d", inv.TotalCents, 24*90)
	}

	w = doJSON(t, router, http.MethodPost, "/api/invoices/"+inv.ID+"/finalise", "", token)
	if w.Code != http.StatusOK {
		t.Fatalf("finalise status = %d; body: %s", w.Code, w.Body.String())
	}

	var finalised invoice.Invoice
	if err := json.Unmarshal(w.Body.Bytes(), &finalised); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if finalised.Status != invoice.StatusFinalised {
		t.Errorf("status = %q, want finalised", finalised.Status)
	}

	// Received quantities posted into stock
	w = doJSON(t, router, http.MethodGet, "/api/stock/"+item.ID, "", token)
	var level inventory.StockLevel
	if err := json.Unmarshal(w.Body.Bytes(), &level); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if level.Quantity != 24 {
		t.Errorf("stock quantity = %d, want 24", level.Quantity)
	}

	// Finalised invoices cannot be finalised again
	w = doJSON(t, router, http.MethodPost, "/api/invoices/"+inv.ID+"/finalise", "", token)
	if w.Code != http.StatusConflict {
		t.Errorf("re-finalise status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestCancelInvoice(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	token := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))

	item := createItemViaAPI(t, router, token, "MILK-1L", "Whole Milk 1L")

	body := fmt.Sprintf(`{
		"number": "INV-002",
		"supplier": "Dairy Co",
		"lines": [{"item_id": %q, "quantity": 10, "unit_price_cents": 90}]
	}`, item.ID)
	w := doJSON(t, router, http.MethodPost, "/api/invoices", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create invoice: %d %s", w.Code, w.Body.String())
	}

	var inv invoice.Invoice
	if err := json.Unmarshal(w.Body.Bytes(), &inv); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	w = doJSON(t, router, http.MethodPost, "/api/invoices/"+inv.ID+"/cancel", "", token)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel status = %d; body: %s", w.Code, w.Body.String())
	}

	// Cancelled invoices post nothing to stock
	w = doJSON(t, router, http.MethodGet, "/api/stock/"+item.ID, "", token)
	var level inventory.StockLevel
	if err := json.Unmarshal(w.Body.Bytes(), &level); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if level.Quantity != 0 {
		t.Errorf("stock quantity = %d, want 0", level.Quantity)
	}
}

func TestCreateInvoice_Validation(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	token := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing number", `{"supplier": "Dairy Co"}`, http.StatusBadRequest},
		{"no lines", `{"number": "INV-X", "supplier": "Dairy Co", "lines": []}`, http.StatusBadRequest},
		{"zero quantity", `{"number": "INV-X", "supplier": "Dairy Co", "lines": [{"item_id": "itm-1", "quantity": 0, "unit_price_cents": 10}]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/invoices", tt.body, token)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

// ─── Submission Tests ──────────────────────────────────────────────

func TestSubmissionFlow_ApproveByChecker(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	makerToken := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))
	checkerToken := tokenFor(t, seedTestUser(t, srv, "checker1", auth.RoleChecker))

	body := `{"kind": "stock_adjust", "payload": {"item_id": "itm-1", "delta": 10}, "comment": "restock"}`
	w := doJSON(t, router, http.MethodPost, "/api/submissions", body, makerToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("create submission status = %d; body: %s", w.Code, w.Body.String())
	}

	var sub approval.Submission
	if err := json.Unmarshal(w.Body.Bytes(), &sub); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sub.Status != approval.StatusPending {
		t.Errorf("status = %q, want pending", sub.Status)
	}

	// Checker sees it in the queue
	w = doJSON(t, router, http.MethodGet, "/api/submissions/pending", "", checkerToken)
	if w.Code != http.StatusOK {
		t.Fatalf("pending status = %d; body: %s", w.Code, w.Body.String())
	}
	var pending struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &pending); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if pending.Count != 1 {
		t.Errorf("pending count = %d, want 1", pending.Count)
	}

	// Checker approves
	w = doJSON(t, router, http.MethodPost, "/api/submissions/"+sub.ID+"/approve",
		`{"comment": "looks right"}`, checkerToken)
	if w.Code != http.StatusOK {
		t.Fatalf("approve status = %d; body: %s", w.Code, w.Body.String())
	}

	var decided approval.Submission
	if err := json.Unmarshal(w.Body.Bytes(), &decided); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decided.Status != approval.StatusApproved {
		t.Errorf("status = %q, want approved", decided.Status)
	}
	if decided.DecidedAt == nil {
		t.Error("decided_at should be set")
	}
}

func TestSubmission_MakerCannotAccessQueue(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	makerToken := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))

	w := doJSON(t, router, http.MethodGet, "/api/submissions/pending", "", makerToken)
	if w.Code != http.StatusForbidden {
		t.Errorf("pending status = %d, want %d", w.Code, http.StatusForbidden)
	}

	w = doJSON(t, router, http.MethodPost, "/api/submissions/sub-x/approve", "", makerToken)
	if w.Code != http.StatusForbidden {
		t.Errorf("approve status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestSubmission_SelfDecisionBlocked(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	// Checkers can raise submissions too; they just cannot decide their own
	checkerToken := tokenFor(t, seedTestUser(t, srv, "checker1", auth.RoleChecker))

	body := `{"kind": "item_update", "payload": {"name": "renamed"}}`
	w := doJSON(t, router, http.MethodPost, "/api/submissions", body, checkerToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("create submission: %d %s", w.Code, w.Body.String())
	}

	var sub approval.Submission
	if err := json.Unmarshal(w.Body.Bytes(), &sub); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	w = doJSON(t, router, http.MethodPost, "/api/submissions/"+sub.ID+"/approve", "", checkerToken)
	if w.Code != http.StatusForbidden {
		t.Errorf("self-approve status = %d, want %d", w.Code, http.StatusForbidden)
	}

	// Still pending for another checker
	w = doJSON(t, router, http.MethodGet, "/api/submissions/"+sub.ID, "", checkerToken)
	var got approval.Submission
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Status != approval.StatusPending {
		t.Errorf("status = %q, want pending after blocked self-decision", got.Status)
	}
}

func TestSubmission_DoubleDecisionBlocked(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	makerToken := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))
	checkerToken := tokenFor(t, seedTestUser(t, srv, "checker1", auth.RoleChecker))
	managerToken := tokenFor(t, seedTestUser(t, srv, "manager1", auth.RoleManager))

	body := `{"kind": "invoice", "payload": {"number": "INV-9"}}`
	w := doJSON(t, router, http.MethodPost, "/api/submissions", body, makerToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("create submission: %d %s", w.Code, w.Body.String())
	}

	var sub approval.Submission
	if err := json.Unmarshal(w.Body.Bytes(), &sub); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if w := doJSON(t, router, http.MethodPost, "/api/submissions/"+sub.ID+"/reject",
		`{"comment": "wrong supplier"}`, checkerToken); w.Code != http.StatusOK {
		t.Fatalf("reject: %d %s", w.Code, w.Body.String())
	}

	// A second verdict, even from a manager, is a conflict
	w = doJSON(t, router, http.MethodPost, "/api/submissions/"+sub.ID+"/approve", "", managerToken)
	if w.Code != http.StatusConflict {
		t.Errorf("second decision status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestSubmission_InvalidKind(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	makerToken := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))

	body := `{"kind": "teleport", "payload": {}}`
	w := doJSON(t, router, http.MethodPost, "/api/submissions", body, makerToken)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestMySubmissions(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	maker1Token := tokenFor(t, seedTestUser(t, srv, "maker1", auth.RoleMaker))
	maker2Token := tokenFor(t, seedTestUser(t, srv, "maker2", auth.RoleMaker))

	body := `{"kind": "item_create", "payload": {"sku": "NEW-1"}}`
	if w := doJSON(t, router, http.MethodPost, "/api/submissions", body, maker1Token); w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}

	// maker2 sees nothing under /mine
	w := doJSON(t, router, http.MethodGet, "/api/submissions/mine", "", maker2Token)
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 0 {
		t.Errorf("maker2 count = %d, want 0", resp.Count)
	}

	w = doJSON(t, router, http.MethodGet, "/api/submissions/mine", "", maker1Token)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("maker1 count = %d, want 1", resp.Count)
	}
}

// ─── Audit Tests ───────────────────────────────────────────────────

func TestAudit_RecordsLogin(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	seedTestUser(t, srv, "alice", auth.RoleMaker)
	managerToken := tokenFor(t, seedTestUser(t, srv, "manager1", auth.RoleManager))

	body := `{"username": "alice", "password": "testpass123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}

	w2 := doJSON(t, router, http.MethodGet, "/api/audit?action=login", "", managerToken)
	if w2.Code != http.StatusOK {
		t.Fatalf("audit status = %d; body: %s", w2.Code, w2.Body.String())
	}

	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("login audit total = %d, want 1", resp.Total)
	}
}

func TestAudit_InvalidLimit(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	managerToken := tokenFor(t, seedTestUser(t, srv, "manager1", auth.RoleManager))

	w := doJSON(t, router, http.MethodGet, "/api/audit?limit=banana", "", managerToken)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
