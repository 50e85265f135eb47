package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/madu-store/api/internal/cart"
	"github.com/madu-store/api/internal/repositories/memory"
	"github.com/madu-store/api/internal/services"
)

var stackNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

type testStack struct {
	router   chi.Router
	registry *memory.Registry
	storage  cart.Storage
	sessions *services.SessionManager
}

func testSeed() memory.Seed {
	return memory.Seed{
		Settings: memory.SeedSettings{
			StoreName:   "Madu",
			WhatsAppURL: "https://wa.me/5491123456789",
		},
		Products: []memory.SeedProduct{
			{
				ID:     1,
				Slug:   "linen-shirt",
				Name:   "Linen Shirt",
				Status: "ACTIVE",
				Variants: []memory.SeedVariant{
					{ID: 101, SKU: "LS-S", Price: "45.00", Stock: 4, Attributes: []memory.SeedAttribute{{Name: "Size", Value: "S"}}},
					{ID: 102, SKU: "LS-M", Price: "45.00", Stock: 0},
				},
			},
			{
				ID:       2,
				Slug:     "ceramic-mug",
				Name:     "Ceramic Mug",
				Variants: []memory.SeedVariant{{ID: 201, SKU: "MUG-01", Price: "12.50", Stock: 30}},
			},
			{
				ID:       3,
				Slug:     "wool-scarf",
				Name:     "Wool Scarf",
				Status:   "ARCHIVED",
				Variants: []memory.SeedVariant{{ID: 301, SKU: "SCF-01", Price: "28.00", Stock: 12}},
			},
		},
	}
}

func newTestStack(t *testing.T, seed memory.Seed) *testStack {
	t.Helper()
	return newTestStackWithStorage(t, seed, cart.NewMemoryStorage())
}

func newTestStackWithStorage(t *testing.T, seed memory.Seed, storage cart.Storage) *testStack {
	t.Helper()

	registry, err := memory.NewRegistry(seed)
	if err != nil {
		t.Fatalf("memory.NewRegistry: %v", err)
	}
	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{Products: registry.Products()})
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}
	settings, err := services.NewSiteSettingsService(services.SiteSettingsServiceDeps{Settings: registry.Settings()})
	if err != nil {
		t.Fatalf("NewSiteSettingsService: %v", err)
	}
	validator, err := services.NewCartValidator(services.CartValidatorDeps{Products: catalog})
	if err != nil {
		t.Fatalf("NewCartValidator: %v", err)
	}
	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Catalog:  catalog,
		Products: registry.Products(),
		Orders:   registry.Orders(),
		Counters: registry.Counters(),
		Clock:    func() time.Time { return stackNow },
		IDGen:    func() string { return "01J0STACK" },
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	flow, err := services.NewCheckoutOrchestrator(services.CheckoutOrchestratorDeps{
		Validator: validator,
		Orders:    orders,
		Settings:  settings,
		Handoff:   services.NewWhatsAppHandoff("wa.me", "$"),
	})
	if err != nil {
		t.Fatalf("NewCheckoutOrchestrator: %v", err)
	}

	sessions := services.NewSessionManager(services.SessionManagerDeps{
		Storage: storage,
		TTL:     time.Hour,
	})

	router := NewRouter(
		WithMiddlewares(ResolveCartSession()),
		WithSessionMiddlewares(RequireCartSession(24*time.Hour)),
		WithPublicRoutes(NewPublicHandlers(catalog, settings).Routes),
		WithCartRoutes(NewCartHandlers(sessions).Routes),
		WithCheckoutRoutes(NewCheckoutHandlers(sessions, flow).Routes),
	)
	return &testStack{router: router, registry: registry, storage: storage, sessions: sessions}
}

// do sends a JSON request on behalf of session. An empty session lets the server issue one.
func (s *testStack) do(t *testing.T, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, payload)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set(CartSessionHeader, session)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decodeView(t *testing.T, rr *httptest.ResponseRecorder) sessionView {
	t.Helper()
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var view sessionView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode session view: %v", err)
	}
	return view
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder, status int) map[string]any {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func shirtItem(qty int, price string) map[string]any {
	item := map[string]any{
		"product_id":   1,
		"product_name": "Linen Shirt",
		"product_slug": "linen-shirt",
		"variant_id":   101,
		"variant_sku":  "LS-S",
		"price":        price,
		"attributes":   []map[string]string{{"name": "Size", "value": "S"}},
	}
	if qty != 0 {
		item["quantity"] = qty
	}
	return item
}

func mugItem(qty int) map[string]any {
	return map[string]any{
		"product_id":   2,
		"product_name": "Ceramic Mug",
		"product_slug": "ceramic-mug",
		"variant_id":   201,
		"price":        "12.50",
		"quantity":     qty,
	}
}
