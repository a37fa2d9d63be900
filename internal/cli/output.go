package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"custody-vault-go/internal/common"
	"custody-vault-go/internal/models"
	"custody-vault-go/internal/units"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The vault rejected the operation
	ExitCommandError = 2 // Command error (bad flags, database unavailable, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeResult prints an operation result and turns a rejected operation into
// an ExitFailure error.
func writeResult(w io.Writer, format string, res *models.OperationResult) error {
	if format == "json" {
		if err := writeJSON(w, res); err != nil {
			return err
		}
	} else {
		renderResult(w, res)
	}

	if !res.Success {
		return NewExitError(ExitFailure, fmt.Sprintf("%s failed: %s", res.Operation, res.Error))
	}
	return nil
}

func renderResult(w io.Writer, res *models.OperationResult) {
	if res.Success {
		fmt.Fprintf(w, "%s succeeded\n", res.Operation)
	} else {
		fmt.Fprintf(w, "%s failed: %s\n", res.Operation, res.Error)
	}
	if res.Vault != "" {
		fmt.Fprintf(w, "  Vault:       %s\n", res.Vault)
	}
	if res.Caller != "" {
		fmt.Fprintf(w, "  Caller:      %s\n", res.Caller)
	}
	fmt.Fprintf(w, "  Amount:      %s\n", units.Format(res.Amount))
	if res.Vault != "" {
		fmt.Fprintf(w, "  New balance: %s\n", units.Format(res.NewBalance))
		fmt.Fprintf(w, "  Alive:       %t\n", res.Alive)
	}
}

// renderVaults prints vault records as a tree.
func renderVaults(w io.Writer, records []models.VaultRecord) {
	common.PrintHeader(w, fmt.Sprintf("VAULTS (%d)", len(records)), common.DefaultWidth)
	if len(records) == 0 {
		fmt.Fprintln(w, "No vaults deployed")
		return
	}

	for i, r := range records {
		last := i == len(records)-1
		detail := common.BoxDetailPrefix(last)
		status := "active"
		if !r.Alive {
			status = "terminated"
		}

		fmt.Fprintf(w, "%s%s\n", common.BoxPrefix(last), r.Address)
		fmt.Fprintf(w, "%s  Owner:        %s\n", detail, r.Owner)
		fmt.Fprintf(w, "%s  Balance:      %s\n", detail, units.Format(r.Balance))
		fmt.Fprintf(w, "%s  Withdraw cap: %s\n", detail, units.Format(r.WithdrawCap))
		fmt.Fprintf(w, "%s  Status:       %s\n", detail, status)
	}
}

func renderTransfers(w io.Writer, id models.Identity, transfers []models.Transfer) {
	if len(transfers) == 0 {
		fmt.Fprintln(w, "No transfers")
		return
	}
	for i, t := range transfers {
		direction, counterparty := "in ", t.From
		if t.From == id {
			direction, counterparty = "out", t.To
		}
		fmt.Fprintf(w, "%s%s %s %s", common.BoxPrefix(i == len(transfers)-1), direction, units.Format(t.Amount), counterparty)
		if t.Reference != "" {
			fmt.Fprintf(w, " [%s]", t.Reference)
		}
		fmt.Fprintln(w)
	}
}
