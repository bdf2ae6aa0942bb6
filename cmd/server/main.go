package main // Entry point package

import (
	"context"
	"errors"
	"log" // Startup and fatal logging
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"            // Echo web framework
	"github.com/labstack/echo/v4/middleware" // Request logging and panic recovery
	glog "github.com/labstack/gommon/log"    // Leveled logger behind echo.Logger
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/queue-health-probe/internal/config"
	"github.com/iliyamo/queue-health-probe/internal/database"
	"github.com/iliyamo/queue-health-probe/internal/handler"
	"github.com/iliyamo/queue-health-probe/internal/metrics"
	appmw "github.com/iliyamo/queue-health-probe/internal/middleware"
	"github.com/iliyamo/queue-health-probe/internal/probe"
	"github.com/iliyamo/queue-health-probe/internal/queue"
	"github.com/iliyamo/queue-health-probe/internal/repository"
	"github.com/iliyamo/queue-health-probe/internal/router"
	"github.com/iliyamo/queue-health-probe/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetPrefix("queue-health-probe")
	if cfg.Env == "dev" {
		e.Logger.SetLevel(glog.DEBUG)
	} else {
		e.Logger.SetLevel(glog.INFO)
	}
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	var rdb *redis.Client
	if cfg.MessageStore == "redis" || cfg.StorageKind == "redis" || cfg.RateLimit.Enabled {
		rdb = config.NewRedisClient(cfg.Redis)
		if rdb == nil {
			e.Logger.Warnf("redis unreachable at %s; using in-process fallbacks", cfg.Redis.Addr)
		} else {
			defer rdb.Close()
		}
	}

	store := messageStore(cfg, rdb, e.Logger)
	consumerHandler := new(queue.Handler)
	transport, closeTransport := newTransport(cfg, consumerHandler)
	defer closeTransport()

	engine := probe.NewEngine(probe.Config{
		Store:     store,
		Transport: transport,
		Logger:    e.Logger,
		Metrics:   metrics.New(nil),
		Defaults: probe.Options{
			Timeout:      cfg.QueueTimeout,
			Interval:     cfg.QueueCheckInterval,
			CancelOnDone: cfg.CancelOnDisconnect,
		},
	})
	*consumerHandler = queue.InboundHandler(engine.Inbound)

	go probe.NewSweeper(store, cfg.QueueRetention, cfg.QueueCleanupInterval, e.Logger).Run(ctx)
	startConsumer(ctx, cfg, *consumerHandler, e.Logger)

	kv, closeKV := kvStore(ctx, cfg, rdb, e.Logger)
	defer closeKV()

	qh := handler.NewQueueHandler(engine)
	qh.MaxTimeout = cfg.QueueMaxTimeout
	router.RegisterRoutes(e) // Register liveness and metrics routes
	router.RegisterProbes(e,
		qh,
		handler.NewStorageHandler(kv),
		&handler.EnvHandler{Keys: cfg.EnvEchoKeys},
		appmw.NewFixedWindow(cfg.RateLimit, rdb),
	)
	router.RegisterInbound(e, qh, cfg.SigningSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, transport=%s, store=%s)", addr, cfg.Env, cfg.Transport, cfg.MessageStore)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.QueueTimeout+5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func messageStore(cfg config.Config, rdb *redis.Client, l echo.Logger) probe.MessageStore {
	if cfg.MessageStore == "redis" && rdb != nil {
		l.Infof("message store: redis (%s)", cfg.Redis.Addr)
		return repository.NewRedisMessageStore(rdb, cfg.Redis.Prefix)
	}
	return probe.NewMemoryStore()
}

// newTransport builds the outbound sender. The loopback sender delivers
// through h, which main fills in once the engine exists.
func newTransport(cfg config.Config, h *queue.Handler) (probe.Transport, func()) {
	switch cfg.Transport {
	case "kafka":
		s := service.NewKafkaSender(cfg.KafkaBrokers, cfg.KafkaTopic)
		return s, func() { _ = s.Close() }
	case "loopback":
		lb := &service.LoopbackSender{Delay: 50 * time.Millisecond}
		lb.Deliver = func(ctx context.Context, body []byte, headers map[string]string) error {
			return (*h)(ctx, body, headers)
		}
		return lb, func() {}
	default:
		s := service.NewAMQPSender(cfg.AMQPURL, cfg.QueueName)
		return s, func() { _ = s.Close() }
	}
}

func startConsumer(ctx context.Context, cfg config.Config, h queue.Handler, l echo.Logger) {
	switch cfg.Transport {
	case "kafka":
		c := queue.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, h)
		go func() { _ = c.Run(ctx) }()
	case "loopback":
		l.Infof("loopback transport: no consumer started")
	default:
		go func() { _ = queue.StartAMQPConsumer(ctx, cfg.AMQPURL, cfg.QueueName, h) }()
	}
}

func kvStore(ctx context.Context, cfg config.Config, rdb *redis.Client, l echo.Logger) (repository.KVStore, func()) {
	switch cfg.StorageKind {
	case "redis":
		if rdb != nil {
			return repository.NewRedisKV(rdb, cfg.Redis.Prefix), func() {}
		}
		l.Warnf("storage backend redis unavailable; using memory")
	case "mysql":
		db, err := database.Open(cfg.DB)
		if err != nil {
			l.Warnf("storage backend mysql unavailable: %v; using memory", err)
			break
		}
		if err := database.EnsureSchema(ctx, db); err != nil {
			l.Warnf("storage backend mysql: %v; using memory", err)
			_ = db.Close()
			break
		}
		return repository.NewMySQLKV(db), func() { _ = db.Close() }
	}
	return repository.NewMemoryKV(), func() {}
}
