package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BrandonDHaskell/Custos/server/internal/config"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/service"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/store/memory"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/store/sqlite"
	"github.com/BrandonDHaskell/Custos/server/internal/db"
	"github.com/BrandonDHaskell/Custos/server/internal/grpcapi"
	"github.com/BrandonDHaskell/Custos/server/internal/httpapi"
)

func main() {
	logger := log.New(os.Stdout, "custos-server ", log.LstdFlags|log.LUTC)

	path := os.Getenv(config.EnvPrefix + "CONFIG")
	if path == "" {
		path = "custos.yml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store
	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("store: %v", err)
	}
	defer closeStore()

	// Services
	ledger := service.NewLedger(st, cfg.Policy())
	settings, err := ledger.Bootstrap(ctx, cfg.AdminPrincipal())
	if err != nil {
		logger.Fatalf("bootstrap: %v", err)
	}
	logger.Printf("ledger ready store=%s admin=%q max_grants=%d audit=%t group_access=%s clock=%s mark=%d",
		cfg.Store, settings.Admin, settings.MaxGrantsPerRecord, settings.AuditEnabled, cfg.GroupAccess, cfg.Clock, ledger.Clock.Mark())

	// HTTP
	var httpSrv *httpapi.Server
	if cfg.HTTPAddr != "" {
		httpSrv = httpapi.NewServer(httpapi.Dependencies{
			Logger: logger,
			Addr:   cfg.HTTPAddr,
			Ledger: ledger,
		})
		go func() {
			logger.Printf("http listening on %s", cfg.HTTPAddr)
			if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("http server error: %v", err)
				stop()
			}
		}()
	}

	// gRPC
	var grpcSrv *grpcapi.Server
	if cfg.GRPCAddr != "" {
		grpcSrv = grpcapi.NewServer(grpcapi.Dependencies{
			Logger: logger,
			Addr:   cfg.GRPCAddr,
			Ledger: ledger,
		})
		go func() {
			logger.Printf("grpc listening on %s", cfg.GRPCAddr)
			if err := grpcSrv.Start(); err != nil {
				logger.Printf("grpc server error: %v", err)
				stop()
			}
		}()
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if httpSrv != nil {
		_ = httpSrv.Shutdown(shutdownCtx)
	}
	if grpcSrv != nil {
		_ = grpcSrv.Shutdown(shutdownCtx)
	}
}

// openStore returns the configured store and a func releasing it.
func openStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (store.Store, func(), error) {
	if cfg.Store == config.StoreMemory {
		st := memory.New()
		return st, func() { _ = st.Close() }, nil
	}

	sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		return nil, nil, err
	}
	st := sqlite.New(sqlDB, db.NewWorker(sqlDB))

	maint := db.NewMaintainer(sqlDB, cfg.MaintenanceInterval(), logger)
	maint.Start(ctx)

	return st, func() {
		maint.Stop()
		_ = st.Close()
		_ = sqlDB.Close()
	}, nil
}
