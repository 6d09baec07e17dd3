package container

import (
	"fmt"
	"net/http"

	"github.com/DirkDigglerz/waracle-cat-project/internal/catapi"
	"github.com/DirkDigglerz/waracle-cat-project/internal/coalesce"
	"github.com/DirkDigglerz/waracle-cat-project/internal/config"
	"github.com/DirkDigglerz/waracle-cat-project/internal/logger"
	"github.com/DirkDigglerz/waracle-cat-project/internal/observer"
	"github.com/DirkDigglerz/waracle-cat-project/internal/service"
	"github.com/DirkDigglerz/waracle-cat-project/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config     *config.Config
	apiClient  catapi.Client
	catService *service.CatService
	metrics    *observer.MetricsObserver
	handler    http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	policy, err := coalesce.ParsePolicy(cfg.CoalescePolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to configure coalescing: %w", err)
	}

	// Build dependency graph
	publisher := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	apiClient := catapi.NewHTTPClient(cfg.CatAPIBaseURL, cfg.CatAPIKey, cfg.UpstreamTimeout)

	opts := service.Options{
		CoalescePolicy:  policy,
		VoteWindow:      cfg.VoteWindow,
		FavouriteWindow: cfg.FavouriteWindow,
		RefreshWorkers:  cfg.RefreshWorkers,
		Publisher:       publisher,
	}
	catService := service.NewCatService(apiClient, opts)
	handler := transport.NewHandler(catService, cfg)

	return &Container{
		config:     cfg,
		apiClient:  apiClient,
		catService: catService,
		metrics:    metrics,
		handler:    handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Metrics returns the mutation metrics collector
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}

// Close flushes pending coalesced work and stops background workers
func (c *Container) Close() {
	c.catService.Close()
}
