package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/sales-ledger/internal/adapter/handler"
	"github.com/rl1809/sales-ledger/internal/adapter/storage"
	"github.com/rl1809/sales-ledger/internal/config"
	"github.com/rl1809/sales-ledger/internal/core/service"
	"github.com/rl1809/sales-ledger/internal/logger"
)

func main() {
	configPath := flag.String("config", "./cmd/server/config.yml", "path to the YAML config file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	if err := logger.Init(conf.API.Environment); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(conf); err != nil {
		zap.L().Fatal("server stopped", zap.Error(err))
	}
}

func run(conf *config.AppConfig) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := storage.Open(ctx, conf.Storage)
	if err != nil {
		return err
	}
	defer closeStore()
	zap.L().Info("connected to backing store", zap.String("backend", conf.Storage.Backend))

	idem, closeIdem, err := storage.OpenIdempotency(ctx, conf.Redis)
	if err != nil {
		return err
	}
	defer closeIdem()

	ledger := service.NewLedgerWriter(store, conf.Storage.SalesTable)
	sales := service.NewSaleService(store, idem, ledger)
	session := service.NewSession(store, sales, ledger, conf.Storage.InventoryTable)

	// A catalog that cannot be loaded at startup is fatal.
	if err := session.Reload(ctx); err != nil {
		return err
	}
	zap.L().Info("catalog loaded", zap.Int("items", len(session.Rows())))

	grpcServer := grpc.NewServer()
	handler.RegisterSalesServer(grpcServer, handler.NewGRPCHandler(session))

	lis, err := net.Listen("tcp", ":"+conf.API.GRPCPort)
	if err != nil {
		return err
	}
	go func() {
		zap.L().Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil {
			zap.L().Error("gRPC server error", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Addr:              ":" + conf.API.HTTPPort,
		Handler:           handler.NewRouter(handler.NewHTTPHandler(session)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.L().Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("HTTP shutdown", zap.Error(err))
	}
	zap.L().Info("HTTP server stopped")

	grpcServer.GracefulStop()
	zap.L().Info("gRPC server stopped")
	return nil
}
