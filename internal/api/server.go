package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"livechat/internal/auth"
	"livechat/internal/channel"
	"livechat/internal/config"
	"livechat/internal/contact"
	"livechat/internal/message"
	"livechat/internal/middleware"
	"livechat/internal/storage"
	"livechat/internal/telemetry"
	"livechat/internal/user"
	"livechat/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Server owns every long-lived dependency of the HTTP and live surfaces.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	mongo  *mongo.Database
	hub    *websocket.Hub
	engine *gin.Engine
	meters *sdkmetric.MeterProvider
	cancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

type serverOptions struct {
	readers []sdkmetric.Reader
}

type Option func(*serverOptions)

// WithMetricReader attaches r to the server's meter provider alongside any
// configured exporter.
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(o *serverOptions) {
		o.readers = append(o.readers, r)
	}
}

func NewServer(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Server, error) {
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	db, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Server{cfg: cfg, logger: logger, db: db}

	var messages storage.MessageStore
	switch cfg.ChatDatabase.Driver {
	case config.DriverMongo:
		s.mongo, err = storage.OpenMongo(cfg.ChatDatabase.URI, cfg.ChatDatabase.Database)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("open chat database: %w", err)
		}
		messages = storage.NewMongoMessageStore(s.mongo, cfg.ChatDatabase.MessagesCollection, logger)
	default:
		messages = storage.NewGormMessageStore(db)
	}

	s.meters, err = telemetry.NewMeterProvider(context.Background(), cfg.Telemetry, o.readers...)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	otel.SetMeterProvider(s.meters)
	if cfg.Telemetry.OTLPEndpoint != "" {
		logger.Info("exporting metrics", zap.String("endpoint", cfg.Telemetry.OTLPEndpoint))
	}

	metrics, err := websocket.NewMetrics(s.meters.Meter("livechat"))
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	users := user.NewUserService(db)
	channels := channel.NewChannelService(db, messages, users)

	registry := websocket.NewRegistry()
	presence := websocket.NewPresence(registry, logger, metrics)
	s.hub = websocket.NewHub(registry, presence, logger, metrics)
	delivery := websocket.NewRouter(registry, messages, channels, users, logger, metrics)

	tokens := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL())
	am := auth.NewAuthMiddleware(tokens)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	strict, standard, lenient := newRateLimiters(ctx, logger)

	router := &Router{
		am:  am,
		ah:  NewAuthHandlers(auth.NewAuthService(db, logger), tokens, cfg.TLS(), logger),
		uh:  NewUserHandlers(users, logger),
		ch:  NewContactHandlers(contact.NewContactService(db, messages, users), logger),
		mh:  NewMessageHandlers(message.NewMessageService(messages, users, logger), logger),
		chh: NewChannelHandlers(channels, logger),
		wsh: NewWebSocketHandler(s.hub, websocket.NewMessageHandler(delivery, logger), am, cfg.Server.Origin,
			websocket.ClientOptions{
				SendBuffer:   cfg.Realtime.SendBuffer,
				InboundRate:  cfg.Realtime.InboundRate,
				InboundBurst: cfg.Realtime.InboundBurst,
			}, logger),
		strict:   strict,
		standard: standard,
		lenient:  lenient,
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), middleware.RequestLogger(logger))
	s.engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Server.Origin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.RegisterRoutes(s.engine)

	go s.hub.Run()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled or the listener fails, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", srv.Addr), zap.Bool("tls", s.cfg.TLS()))
		var err error
		if s.cfg.TLS() {
			err = srv.ListenAndServeTLS(s.cfg.Server.CertFile, s.cfg.Server.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	var runErr error
	select {
	case err := <-serverErrors:
		runErr = fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down")
	}

	// Hijacked websocket connections are not tracked by Shutdown.
	s.hub.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("server shutdown error", zap.Error(err))
	}

	if err := s.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Close stops the hub, flushes metrics and releases the databases. It is
// safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.close()
	})
	return s.closeErr
}

func (s *Server) close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.hub != nil {
		s.hub.Stop()
	}

	var errs []error
	if s.meters != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		errs = append(errs, s.meters.Shutdown(ctx))
	}
	if s.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		errs = append(errs, s.mongo.Client().Disconnect(ctx))
	}
	if sqlDB, err := s.db.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}
