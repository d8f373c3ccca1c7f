package http

import (
	"context"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/vendora-inc/vendora/internal/application/subscription"
	"github.com/vendora-inc/vendora/internal/infrastructure/auth"
	"github.com/vendora-inc/vendora/internal/infrastructure/config"
	"github.com/vendora-inc/vendora/internal/infrastructure/metrics"
	"github.com/vendora-inc/vendora/internal/infrastructure/permission"
	"github.com/vendora-inc/vendora/internal/infrastructure/pubsub"
	"github.com/vendora-inc/vendora/internal/infrastructure/scheduler"
	"github.com/vendora-inc/vendora/internal/interfaces/http/middleware"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

// Container holds all infrastructure components, repositories, use cases,
// handlers and background services, and shuts them down in order.
type Container struct {
	// Core infrastructure
	engine *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
	log    logger.Interface
	redis  *redis.Client

	repos *repositories
	ucs   *allUseCases
	hdlrs *allHandlers

	// Access resolution
	metrics       *metrics.Metrics
	scopes        *subscription.ScopeRegistry
	jwtSvc        *auth.JWTService
	identities    *auth.IdentityProvider
	catalog       *permission.Catalog
	roles         *permission.RoleAuthorizer
	accessContext *middleware.AccessContextMiddleware
	routeGuard    *middleware.RouteGuard
	featureGuard  *middleware.FeatureGuard
	rateLimit     *middleware.RateLimitMiddleware

	// Background services
	schedulerManager *scheduler.SchedulerManager
	billingEvents    *pubsub.RedisBillingEventBus
	eventsCancel     context.CancelFunc
	eventsDone       chan struct{}
	shutdownOnce     sync.Once
}

// NewContainer wires everything. redisClient may be nil when neither the
// Redis record cache nor billing events are enabled.
func NewContainer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, log logger.Interface) (*Container, error) {
	c := &Container{
		engine: gin.New(),
		db:     db,
		cfg:    cfg,
		log:    log,
		redis:  redisClient,
	}

	// Section 1: Infrastructure - repositories, caches, resolver registry
	if err := c.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	// Section 2: Access - identity, policies, guards
	if err := c.initAccess(); err != nil {
		return nil, fmt.Errorf("failed to initialize access guards: %w", err)
	}

	// Section 3: Billing use cases
	c.initUseCases()

	// Section 4: Handlers
	c.initHandlers()

	// Section 5: Scheduled refresh and billing events
	if err := c.initBackground(); err != nil {
		return nil, fmt.Errorf("failed to initialize background services: %w", err)
	}

	return c, nil
}

// Engine returns the gin engine.
func (c *Container) Engine() *gin.Engine {
	return c.engine
}

// Scopes exposes the session scope registry.
func (c *Container) Scopes() *subscription.ScopeRegistry {
	return c.scopes
}

// Start launches the scheduler and the billing event subscriber.
func (c *Container) Start(ctx context.Context) {
	c.schedulerManager.Start()

	if c.billingEvents == nil {
		return
	}
	eventsCtx, cancel := context.WithCancel(ctx)
	c.eventsCancel = cancel
	c.eventsDone = make(chan struct{})
	go func() {
		defer close(c.eventsDone)
		c.billingEvents.Run(eventsCtx, c.handleBillingEvent)
	}()
	c.log.Infow("billing event subscriber started", "channel", c.cfg.Subscription.EventChannel)
}

// Shutdown stops background work. The HTTP server must be shut down first.
func (c *Container) Shutdown() {
	c.shutdownOnce.Do(func() {
		if c.eventsCancel != nil {
			c.eventsCancel()
			<-c.eventsDone
		}
		if err := c.schedulerManager.Stop(); err != nil {
			c.log.Errorw("failed to stop scheduler", "error", err)
		}
		if c.redis != nil {
			if err := c.redis.Close(); err != nil {
				c.log.Warnw("failed to close redis client", "error", err)
			}
		}
		c.log.Infow("container shut down")
	})
}
