package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/EzzalddeenAli/recticket/config"
	"github.com/EzzalddeenAli/recticket/events"
	"github.com/EzzalddeenAli/recticket/handlers"
	"github.com/EzzalddeenAli/recticket/kafka"
	"github.com/EzzalddeenAli/recticket/limiter"
	"github.com/EzzalddeenAli/recticket/logger"
	custommiddleware "github.com/EzzalddeenAli/recticket/middleware"
	"github.com/EzzalddeenAli/recticket/models"
	"github.com/EzzalddeenAli/recticket/realtime"
	"github.com/EzzalddeenAli/recticket/redis"
	"github.com/EzzalddeenAli/recticket/services"
	"github.com/EzzalddeenAli/recticket/store"
	"github.com/EzzalddeenAli/recticket/whatsapp"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	Echo       *echo.Echo
	DB         *gorm.DB
	Config     *config.Config
	Hub        *realtime.Hub
	Dispatcher *events.Dispatcher

	AuthHandler     *handlers.AuthHandler
	ContactHandler  *handlers.ContactHandler
	TicketHandler   *handlers.TicketHandler
	UserHandler     *handlers.UserHandler
	SettingHandler  *handlers.SettingHandler
	OrderHandler    *handlers.OrderHandler
	RealtimeHandler *handlers.RealtimeHandler

	// tasks 与 hub 一起运行的后台任务（relay 订阅、kafka 消费）
	tasks []func(ctx context.Context) error
	// closers 退出时逆序关闭
	closers []func() error
}

func echoLogLevel(level string) log.Lvl {
	switch level {
	case "trace", "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error", "fatal", "panic":
		return log.ERROR
	}
	return log.INFO
}

func NewServer(cfg config.Config) (*Server, error) {
	s := &Server{Config: &cfg}
	appLog := logger.App()

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	s.DB = db
	s.closers = append(s.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	if err := models.AutoMigrateAll(db); err != nil {
		s.close()
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}
	st := store.New(db)

	gateway, err := whatsapp.NewGateway(cfg.Connector, &http.Client{})
	if err != nil {
		s.close()
		return nil, err
	}
	connector := whatsapp.NewGatewayProvider(st.Whatsapps, gateway)

	// Redis 可选：在线状态、限流、跨实例广播
	var rc *redis.RedisClient
	if cfg.Redis.Addr != "" {
		rc, err = redis.NewRedisClient(cfg.Redis)
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, rc.Close)
	}

	var online handlers.OnlineLister
	if rc != nil {
		presence := redis.NewPresence(rc.Client)
		s.Hub = realtime.NewHub(presence, cfg.Events.QueueSize)
		online = presence
	} else {
		presence := realtime.NewLocalPresence()
		s.Hub = realtime.NewHub(presence, cfg.Events.QueueSize)
		online = presence
	}

	sinks, err := s.relaySinks(cfg, rc)
	if err != nil {
		s.close()
		return nil, err
	}
	s.Dispatcher = events.NewDispatcher(cfg.Events.QueueSize, cfg.Events.Workers, sinks...)

	authService := services.NewAuthService(st.Users, &cfg.Auth)
	oauthService := services.NewOAuthService(&cfg.Auth)
	userService := services.NewUserService(st.Users, st.Settings)

	s.AuthHandler = handlers.NewAuthHandler(authService, oauthService)
	s.ContactHandler = handlers.NewContactHandler(services.NewContactService(st.Contacts, connector), s.Dispatcher)
	s.TicketHandler = handlers.NewTicketHandler(services.NewTicketService(st.Tickets, st.Contacts, connector, time.Local), s.Dispatcher)
	s.UserHandler = handlers.NewUserHandler(userService, online, s.Dispatcher)
	s.SettingHandler = handlers.NewSettingHandler(services.NewSettingService(st.Settings), s.Dispatcher)
	s.OrderHandler = handlers.NewOrderHandler(services.NewOrderService(st.Orders, st.Locations, st.Tickets, st.Contacts))
	s.RealtimeHandler = handlers.NewRealtimeHandler(s.Hub, cfg.Events.ClientBuffer)

	bootCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	b := cfg.Bootstrap
	if err := userService.EnsureAdmin(bootCtx, b.AdminName, b.AdminEmail, b.AdminPassword); err != nil {
		s.close()
		return nil, err
	}

	// 初始化 Echo
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(echoLogLevel(cfg.Log.Level))
	e.Validator = &handlers.CustomValidator{}
	e.Use(custommiddleware.RequestID())
	e.Use(custommiddleware.AccessLog())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.PATCH},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentLength, echo.HeaderXRequestID},
		MaxAge:           86400,
	}))
	s.Echo = e

	// --- 设置路由 ---
	authMiddleware := custommiddleware.AuthMiddleware(authService)
	adminMiddleware := custommiddleware.AdminAuthMiddleware()
	signupLimit, loginLimit, err := rateLimits(cfg.RateLimit, rc)
	if err != nil {
		s.close()
		return nil, err
	}
	s.SetupRoutes(authMiddleware, adminMiddleware, signupLimit, loginLimit)

	appLog.WithField("relay", cfg.Events.Relay).Info("server initialized")
	return s, nil
}

// relaySinks local 直接投递到本实例 hub；redis 和 kafka 先发到中间件，
// 再由每个实例各自订阅后投递到自己的 hub（包括发送方自己）
func (s *Server) relaySinks(cfg config.Config, rc *redis.RedisClient) ([]events.Sink, error) {
	switch cfg.Events.Relay {
	case "redis":
		if rc == nil {
			return nil, errors.New("events.relay=redis requires redis.addr")
		}
		relay := redis.NewRelay(rc.Client, cfg.Events.Channel, s.Hub)
		s.tasks = append(s.tasks, relay.Run)
		return []events.Sink{relay}, nil

	case "kafka":
		instanceID := uuid.New().String()
		saramaCfg, err := kafka.NewSaramaConfig(cfg.Kafka, instanceID)
		if err != nil {
			return nil, err
		}
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, saramaCfg)
		if err != nil {
			return nil, fmt.Errorf("create kafka producer: %w", err)
		}
		s.closers = append(s.closers, producer.Close)
		// 每个实例独立的 group，才能收到全部事件
		groupID := "recticket-" + instanceID
		consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, groupID, []string{cfg.Kafka.Topic},
			saramaCfg, kafka.NewEventHandler(s.Hub))
		if err != nil {
			return nil, fmt.Errorf("create kafka consumer: %w", err)
		}
		s.closers = append(s.closers, consumer.Close)
		s.tasks = append(s.tasks, consumer.Start)
		return []events.Sink{producer}, nil
	}
	return []events.Sink{s.Hub}, nil
}

// rateLimits Redis 未配置或限流关闭时返回不做任何事的中间件
func rateLimits(cfg config.RateLimitConfig, rc *redis.RedisClient) (signup, login echo.MiddlewareFunc, err error) {
	noop := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if !cfg.Enabled || rc == nil {
		if cfg.Enabled {
			logger.App().Warn("rate limiting enabled but redis is not configured, skipping")
		}
		return noop, noop, nil
	}
	strategy, err := limiter.NewStrategy(cfg.Strategy)
	if err != nil {
		return nil, nil, err
	}
	manager := limiter.NewManager(rc.Client, strategy, cfg.Limit, cfg.Window)
	signup = custommiddleware.NewRateLimitMiddleware(manager, custommiddleware.RateLimitConfig{Scope: "signup"})
	login = custommiddleware.NewRateLimitMiddleware(manager, custommiddleware.RateLimitConfig{Scope: "login"})
	return signup, login, nil
}

// Run 阻塞直到 ctx 结束或 HTTP 服务出错，然后依次关闭 HTTP、事件分发、后台任务和连接
func (s *Server) Run(ctx context.Context) error {
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	g, gctx := errgroup.WithContext(bgCtx)
	g.Go(func() error {
		s.Hub.Run(gctx)
		return nil
	})
	for _, task := range s.tasks {
		task := task
		g.Go(func() error { return task(gctx) })
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.Echo.Start(s.Config.Server.Addr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	case <-gctx.Done():
		runErr = errors.New("background task stopped")
	}

	appLog := logger.App()
	appLog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Echo.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Warn("http shutdown")
	}
	s.Dispatcher.Close()
	stopBackground()
	if err := g.Wait(); err != nil {
		appLog.WithError(err).Error("background task failed")
		if runErr == nil {
			runErr = err
		}
	}
	s.close()
	return runErr
}

func (s *Server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.App().WithError(err).Warn("close resource")
		}
	}
	s.closers = nil
}
