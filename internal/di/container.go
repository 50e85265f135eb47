package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/madu-store/api/internal/cart"
	"github.com/madu-store/api/internal/platform/config"
	"github.com/madu-store/api/internal/repositories"
	"github.com/madu-store/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Catalog   services.CatalogService
	Settings  services.SiteSettingsService
	Validator services.CartValidator
	Orders    services.OrderService
	Checkout  *services.CheckoutOrchestrator
	Sessions  *services.SessionManager
}

// Infrastructure carries the backends chosen at startup that are not part of the registry.
type Infrastructure struct {
	CartStorage cart.Storage
	Events      services.OrderEventPublisher
	// Logger returns the event logger for a named component. Nil disables service logging.
	Logger func(component string) services.Logger
	Clock  func() time.Time
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides Firestore or
// Redis backed infrastructure, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, infra Infrastructure) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, reg, cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, infra Infrastructure) (Services, error) {
	var svc Services

	clock := infra.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := func(component string) services.Logger {
		if infra.Logger == nil {
			return nil
		}
		return infra.Logger(component)
	}

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: reg.Products(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	settingsSvc, err := services.NewSiteSettingsService(services.SiteSettingsServiceDeps{
		Settings: reg.Settings(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build settings service: %w", err)
	}
	svc.Settings = settingsSvc

	validator, err := services.NewCartValidator(services.CartValidatorDeps{
		Products:       catalogSvc,
		CurrencySymbol: cfg.Storefront.CurrencySymbol,
		Logger:         logger("cart_validation"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart validator: %w", err)
	}
	svc.Validator = validator

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Catalog:  catalogSvc,
		Products: reg.Products(),
		Orders:   reg.Orders(),
		Counters: reg.Counters(),
		Events:   infra.Events,
		Clock:    clock,
		Logger:   logger("orders"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	checkout, err := services.NewCheckoutOrchestrator(services.CheckoutOrchestratorDeps{
		Validator: validator,
		Orders:    orderSvc,
		Settings:  settingsSvc,
		Handoff:   services.NewWhatsAppHandoff(cfg.Storefront.MessagingHost, cfg.Storefront.CurrencySymbol),
		Logger:    logger("checkout"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout orchestrator: %w", err)
	}
	svc.Checkout = checkout

	svc.Sessions = services.NewSessionManager(services.SessionManagerDeps{
		Storage:    infra.CartStorage,
		StorageKey: cfg.Cart.StorageKey,
		TTL:        cfg.Cart.SessionTTL,
		Clock:      clock,
		Logger:     logger("cart"),
	})

	return svc, nil
}
