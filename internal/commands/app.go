package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bankline-dev/bankline/internal/accounts"
	"github.com/bankline-dev/bankline/internal/config"
	"github.com/bankline-dev/bankline/internal/journal"
	"github.com/bankline-dev/bankline/internal/ledger"
	"github.com/bankline-dev/bankline/internal/logging"
	"github.com/bankline-dev/bankline/internal/model"
	"github.com/bankline-dev/bankline/internal/pgstore"
)

// storeLockWait bounds how long a command waits for another bankline
// process to release the CSV data directory.
const storeLockWait = 30 * time.Second

// recordSource lists the whole transaction log.
type recordSource interface {
	All(ctx context.Context) ([]model.TransactionRecord, error)
}

// app is a ledger opened from a bankline home directory.
type app struct {
	home    string
	cfg     *config.Config
	log     *zap.Logger
	ledger  *ledger.Ledger
	records recordSource
	closers []func()
}

// openApp loads bankline.yaml from the home directory, connects the
// configured storage and fills the ledger from it.
func openApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	ctx := cmd.Context()
	home, err := filepath.Abs(opts.home)
	if err != nil {
		return nil, fmt.Errorf("resolving home: %w", err)
	}

	cfg, err := config.Load(filepath.Join(home, config.FileName))
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}

	policy, err := cfg.LedgerPolicy()
	if err != nil {
		return nil, err
	}

	a := &app{home: home, cfg: cfg, log: log}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	var (
		acctStore ledger.AccountStore
		txStore   ledger.TxStore
	)
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := pgstore.Connect(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		txLog := pgstore.NewTxLog(pool)
		acctStore, txStore, a.records = pgstore.NewAccountStore(pool), txLog, txLog
	default:
		dir := a.dataDir()
		lockCtx, cancel := context.WithTimeout(ctx, storeLockWait)
		store, err := accounts.OpenDir(lockCtx, dir)
		cancel()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := store.Close(); err != nil {
				log.Warn("closing accounts store", zap.Error(err))
			}
		})
		txLog := journal.NewDirLog(dir)
		acctStore, txStore, a.records = store, txLog, txLog
	}

	a.ledger = ledger.New(ledger.NewRegistry(), acctStore, txStore,
		ledger.WithPolicy(policy),
		ledger.WithLogger(log),
		ledger.WithPinCost(cfg.PinCost()))

	n, err := a.ledger.Load(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	log.Debug("ledger loaded", zap.Int("accounts", n), zap.String("backend", cfg.Storage.Backend))
	return a, nil
}

func (a *app) dataDir() string {
	if filepath.IsAbs(a.cfg.Storage.DataDir) {
		return a.cfg.Storage.DataDir
	}
	return filepath.Join(a.home, a.cfg.Storage.DataDir)
}

// Close releases storage connections and flushes the logger.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// withApp opens the app, runs fn and closes it.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(a *app) error) error {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// authenticate checks --pin before a protected operation.
func (a *app) authenticate(ctx context.Context, number, pin string) (model.Account, error) {
	if pin == "" {
		return model.Account{}, fmt.Errorf("%w: --pin is required", model.ErrInvalidPin)
	}
	return a.ledger.Authenticate(ctx, number, pin)
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a number", model.ErrInvalidAmount, s)
	}
	return d, nil
}
