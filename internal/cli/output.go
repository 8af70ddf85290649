package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"google.golang.org/grpc/status"

	"github.com/BrandonDHaskell/Custos/server/internal/grpcapi"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the ledger rejected the call
	ExitCommandError = 2 // bad arguments, unreachable server
)

// ExitError carries the process exit code for a failed command.
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

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns ExitFailure for errors that carry no code.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// callError turns an RPC failure into an ExitError.  Rejections carrying
// a domain code exit with ExitFailure; transport failures with
// ExitCommandError.
func callError(method string, err error) error {
	if grpcapi.DomainCode(err) != "" {
		return NewExitError(ExitFailure, status.Convert(err).Message())
	}
	return WrapExitError(ExitCommandError, method, err)
}

// OutputFormatter prints responses as indented JSON or as sorted
// "key: value" lines.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

func (f *OutputFormatter) Success(data map[string]any) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(f.Writer, "%s: %s\n", k, textValue(data[k])); err != nil {
			return err
		}
	}
	return nil
}

func textValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case bool, nil:
		return fmt.Sprint(v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
