package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	api "siterent-backend/internal/api/grpc"
	"siterent-backend/internal/api/grpc/interceptor"
	httpapi "siterent-backend/internal/api/http"
	"siterent-backend/internal/cache"
	"siterent-backend/internal/config"
	"siterent-backend/internal/logger"
	"siterent-backend/internal/repository/postgres"
	"siterent-backend/internal/security"
	"siterent-backend/internal/service"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting SiteRent Ledger Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "http_enabled", cfg.HTTP.Enabled)
	logger.Info("Database configuration", "driver", cfg.Database.Driver, "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	db, err := postgres.Open(
		cfg.Database.Driver,
		cfg.GetDatabaseConnectionString(),
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		time.Duration(cfg.Database.ConnMaxLifetime)*time.Minute,
	)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	if err := postgres.Migrate(context.Background(), db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)

	opts := service.Options{
		InvoicePrefix:        cfg.Ledger.InvoicePrefix,
		MaxRetries:           cfg.Ledger.TxMaxRetries,
		AllowNegativeBalance: cfg.Ledger.AllowNegativeBalance,
	}
	if cfg.Redis.Addr != "" {
		rc, err := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, time.Duration(cfg.Redis.TTLSeconds)*time.Second)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without read cache", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer rc.Close()
			opts.Cache = rc
			logger.Info("Read cache enabled", "addr", cfg.Redis.Addr, "ttl_seconds", cfg.Redis.TTLSeconds)
		}
	}

	stockSvc := service.NewStockService(store, opts)
	orderSvc := service.NewOrderService(store, opts)
	historySvc := service.NewHistoryService(store, opts)
	siteSvc := service.NewSiteLedgerService(store, opts)
	paymentSvc := service.NewPaymentService(store, opts)

	ledgerHandler := api.NewLedgerHandler(orderSvc, historySvc, siteSvc, paymentSvc, stockSvc)

	lis, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetServerAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	interceptors := []grpc.UnaryServerInterceptor{interceptor.Metrics()}
	if cfg.JWT.Disabled {
		logger.Warn("JWT authentication disabled")
	} else {
		interceptors = append(interceptors, interceptor.NewAuthInterceptor(security.NewTokenManager(cfg.JWT.Secret)).Unary())
	}
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))

	api.RegisterLedgerServiceServer(s, ledgerHandler)
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthSrv)
	reflection.Register(s)

	var httpSrv *http.Server
	if cfg.HTTP.Enabled {
		readHandler := httpapi.NewReadHandler(stockSvc, orderSvc, historySvc, siteSvc, paymentSvc, db.PingContext)
		httpSrv = &http.Server{
			Addr:              cfg.GetHTTPAddress(),
			Handler:           httpapi.NewRouter(readHandler),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("HTTP read API listening", "address", httpSrv.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "error", err)
			}
		}()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")
		healthSrv.Shutdown()
		if httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(ctx); err != nil {
				logger.Error("HTTP shutdown error", "error", err)
			}
		}
		s.GracefulStop()
	}()

	logger.Info("gRPC server listening", "address", cfg.GetServerAddress())
	if err := s.Serve(lis); err != nil {
		logger.Error("Failed to serve gRPC", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
	logger.Info("Server stopped")
}
