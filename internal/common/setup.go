package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"custody-vault-go/internal/config"
	"custody-vault-go/internal/database"
	"custody-vault-go/internal/formance"
	"custody-vault-go/internal/ledger"
	"custody-vault-go/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	}
}

// Ledger is the value ledger a deployment runs on.
type Ledger interface {
	ledger.ValueLedger
	ledger.Minter
	ReconcileBalance(ctx context.Context, id models.Identity) error
	GetTransferHistory(ctx context.Context, id models.Identity, limit int) ([]models.Transfer, error)
	Close()
}

// Services bundles the vault repository (always SQLite) and the value ledger
// selected by LEDGER_BACKEND.
type Services struct {
	DbService *database.Service
	Ledger    Ledger
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	switch cfg.Ledger.Backend {
	case config.BackendFormance:
		zap.L().Info("Using Formance ledger backend")
		formanceService, err := formance.NewService(ctx, cfg.Ledger.Formance)
		if err != nil {
			dbService.Close()
			return nil, err
		}
		return &Services{DbService: dbService, Ledger: formanceService}, nil
	case config.BackendSQLite, "":
		zap.L().Info("Using SQLite ledger backend")
		return &Services{DbService: dbService, Ledger: sqliteLedger{dbService}}, nil
	default:
		dbService.Close()
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

func (cs *Services) Close() {
	if cs.Ledger != nil {
		cs.Ledger.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

// sqliteLedger presents the database service as a Ledger. The connection is
// owned by Services.DbService, so Close does nothing here.
type sqliteLedger struct {
	*database.Service
}

func (l sqliteLedger) GetTransferHistory(ctx context.Context, id models.Identity, limit int) ([]models.Transfer, error) {
	return l.Service.GetTransferHistory(ctx, id, limit, 0)
}

func (sqliteLedger) Close() {}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
