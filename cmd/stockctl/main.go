package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/rl1809/sales-ledger/internal/adapter/storage"
	"github.com/rl1809/sales-ledger/internal/config"
	"github.com/rl1809/sales-ledger/internal/core/service"
	"github.com/rl1809/sales-ledger/internal/logger"
)

var configPath string

// app holds what every command needs; it is built once per invocation.
type app struct {
	session *service.Session
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	logger.Sync()
}

var rootCmd = &cobra.Command{
	Use:           "stockctl",
	Short:         "Look up stock and record sales against the inventory sheet",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./cmd/server/config.yml", "path to the YAML config file")
}

// openApp loads the config, connects the stores and loads the catalog.
func openApp(ctx context.Context) (*app, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(conf.API.Environment); err != nil {
		return nil, err
	}

	a := &app{}
	store, closeStore, err := storage.Open(ctx, conf.Storage)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	idem, closeIdem, err := storage.OpenIdempotency(ctx, conf.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeIdem)

	ledger := service.NewLedgerWriter(store, conf.Storage.SalesTable)
	sales := service.NewSaleService(store, idem, ledger)
	a.session = service.NewSession(store, sales, ledger, conf.Storage.InventoryTable)
	if err := a.session.Reload(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// withApp adapts a command body that needs a loaded session.
func withApp(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		os.Exit(1)
	}
}
