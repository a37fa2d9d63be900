package formance

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"custody-vault-go/internal/ledger"
	"custody-vault-go/internal/models"
	"custody-vault-go/internal/units"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// Compile-time checks: *Service is a complete value ledger.
var (
	_ ledger.ValueLedger = (*Service)(nil)
	_ ledger.Minter      = (*Service)(nil)
)

const defaultLedgerName = "custody-vault"

// accountPrefix namespaces every identity inside the Formance ledger.
const accountPrefix = "identities:"

// Formance account segments allow only these characters.
// worldAccount is the Formance account that issues value.
const worldAccount = "world"

var identityPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+(:[a-zA-Z0-9_-]+)*$`)

// Service implements ledger.ValueLedger backed by a Formance Stack ledger.
type Service struct {
	client *v3.Formance
	ledger string
}

// NewService creates a Formance-backed value ledger.
// It connects to the stack, creates the ledger if it doesn't already exist, and returns ready to use.
func NewService(ctx context.Context, cfg models.FormanceConfig) (*Service, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance config requires StackURL, ClientID, and ClientSecret")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = defaultLedgerName
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	svc := &Service{client: client, ledger: cfg.LedgerName}

	if err := svc.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}

	zap.L().Info("Formance service initialized", zap.String("ledger", cfg.LedgerName))
	return svc, nil
}

// ensureLedger creates the ledger if it does not already exist.
func (s *Service) ensureLedger(ctx context.Context) error {
	_, err := s.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: s.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": defaultLedgerName,
			},
		},
	})
	if err != nil {
		if hasErrorCode(err, shared.V2ErrorsEnumLedgerAlreadyExists) {
			zap.L().Info("Ledger already exists", zap.String("ledger", s.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", s.ledger))
	return nil
}

// Close is a no-op for the Formance backend (HTTP client needs no teardown).
func (s *Service) Close() {}

// ---------- helpers ----------

// formanceAsset returns the Formance UMN notation of the native unit, e.g. "ETH/18".
func formanceAsset() string {
	return fmt.Sprintf("%s/%d", units.Symbol, units.Decimals)
}

// accountAddress maps an identity to its Formance account. The genesis
// identity is the ledger's @world account.
func accountAddress(id models.Identity) (string, error) {
	if id == models.GenesisIdentity {
		return worldAccount, nil
	}
	if !identityPattern.MatchString(id.String()) {
		return "", fmt.Errorf("%w: identity %q is not a valid Formance account segment", ledger.ErrInvalidTransfer, id)
	}
	return accountPrefix + id.String(), nil
}

// identityFromAddress reverses accountAddress.
func identityFromAddress(address string) models.Identity {
	if address == worldAccount {
		return models.GenesisIdentity
	}
	return models.Identity(strings.TrimPrefix(address, accountPrefix))
}

func hasErrorCode(err error, code shared.V2ErrorsEnum) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == code
}

// isConflictError checks whether a Formance SDK error is a CONFLICT (duplicate reference).
func isConflictError(err error) bool {
	return hasErrorCode(err, shared.V2ErrorsEnumConflict)
}

// isInsufficientFundError checks whether a Formance SDK error is INSUFFICIENT_FUND.
func isInsufficientFundError(err error) bool {
	return hasErrorCode(err, shared.V2ErrorsEnumInsufficientFund)
}

// isNotFoundError checks whether a Formance SDK error is NOT_FOUND.
func isNotFoundError(err error) bool {
	return hasErrorCode(err, shared.V2ErrorsEnumNotFound)
}

func strPtr(s string) *string { return &s }
