package di

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/table-order/api/internal/payments"
	"github.com/table-order/api/internal/platform/config"
	"github.com/table-order/api/internal/repositories"
	"github.com/table-order/api/internal/repositories/postgres"
	"github.com/table-order/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Orders   services.OrderService
	Webhooks services.WebhookService
	Sales    services.SalesService
	Catalog  services.CatalogService
}

// Repositories bundles the persistence contracts behind the services.
type Repositories struct {
	Orders repositories.OrderRepository
	Menu   repositories.MenuRepository
}

// Container wires repositories, services, and shared infrastructure.
type Container struct {
	Config       config.Config
	Pool         *pgxpool.Pool
	Repositories Repositories
	Services     Services
}

// ContainerDeps carries the externally constructed collaborators: the
// database pool plus the payment gateway adapters.
type ContainerDeps struct {
	Pool     *pgxpool.Pool
	Provider payments.Provider
	Verifier payments.WebhookVerifier
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewContainer assembles the runtime dependency graph.
func NewContainer(cfg config.Config, deps ContainerDeps) (*Container, error) {
	if deps.Pool == nil {
		return nil, errors.New("di: database pool is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("di: payment provider is required")
	}
	if deps.Verifier == nil {
		return nil, errors.New("di: webhook verifier is required")
	}

	repos := Repositories{
		Orders: postgres.NewOrderRepository(deps.Pool),
		Menu:   postgres.NewMenuRepository(deps.Pool),
	}

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:       repos.Orders,
		Menu:         repos.Menu,
		Payments:     deps.Provider,
		Clock:        time.Now,
		IDGenerator:  func() string { return ulid.Make().String() },
		Logger:       deps.Logger,
		PublicOrigin: cfg.Checkout.PublicOrigin,
	})
	if err != nil {
		return nil, err
	}

	webhookSvc, err := services.NewWebhookService(services.WebhookServiceDeps{
		Orders:   repos.Orders,
		Verifier: deps.Verifier,
		Clock:    time.Now,
		Logger:   deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	salesSvc, err := services.NewSalesService(services.SalesServiceDeps{Orders: repos.Orders})
	if err != nil {
		return nil, err
	}

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{Menu: repos.Menu})
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Pool:         deps.Pool,
		Repositories: repos,
		Services: Services{
			Orders:   orderSvc,
			Webhooks: webhookSvc,
			Sales:    salesSvc,
			Catalog:  catalogSvc,
		},
	}, nil
}

// Close releases the database pool.
func (c *Container) Close() {
	if c == nil || c.Pool == nil {
		return
	}
	c.Pool.Close()
}
