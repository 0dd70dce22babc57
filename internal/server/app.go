// Package server initializes and runs the application server: database pool,
// migrations, chain signer, services, and the HTTP endpoint, with
// signal-driven graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dkurguzov/betkeeper/internal/chain"
	"github.com/dkurguzov/betkeeper/internal/keystore"
	"github.com/dkurguzov/betkeeper/internal/logging"
	"github.com/dkurguzov/betkeeper/internal/server/config"
	"github.com/dkurguzov/betkeeper/internal/server/httpapi"
	"github.com/dkurguzov/betkeeper/internal/server/repositories/repomanager"
	"github.com/dkurguzov/betkeeper/internal/server/services"
	"github.com/dkurguzov/betkeeper/internal/wallet"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *http.Server
}

// NewApp wires every component once, at startup. There are no module-level
// service objects: everything hangs off the returned App.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("rpc dial error: %w", err)
	}

	signer := chain.NewSigner(client, cfg.ChainID, cfg.Network, logger)
	wallets := wallet.NewManager(keystore.Params{ScryptN: cfg.ScryptN})

	userService := services.NewUserService(db, rm, wallets, cfg)
	contractService := services.NewContractService(db, rm, userService, wallets, signer, logger)
	betService := services.NewBetService(db, rm, contractService, logger)

	handler := httpapi.NewHandler(userService, contractService, betService, []byte(cfg.SecretKey), logger)

	srv := &http.Server{
		Addr:    cfg.EndpointAddrHTTP,
		Handler: httpapi.NewRouter(handler),
	}

	return &App{config: cfg, logger: logger, db: db, server: srv}, nil
}

// Run serves HTTP until the context is cancelled or a termination signal
// arrives, then drains in-flight requests.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigs
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "starting HTTP server", "addr", app.config.EndpointAddrHTTP)
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return app.db.Close()
}
