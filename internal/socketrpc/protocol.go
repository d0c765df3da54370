package socketrpc

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/tinytelemetry/portal/internal/model"
)

// JSON-RPC 2.0 Method Reference
//
// The socket RPC server exposes model.PortalAPI over a Unix domain socket.
// Each method maps 1:1 to the PortalAPI interface.
//
//   Method                 Params                                 Result
//   ───────────────────    ────────────────────────────────────   ─────────────────────────
//   GetWidgetsInfo         (none)                                 []WidgetDescriptor
//   GetWidgetDefinition    {Name: string}                         WidgetDefinition
//   GetDashboardList       (none)                                 []DashboardDescriptor
//   GetDashboard           {URL: string}                          DashboardDescriptor
//   CreateDashboard        {Dashboard: DashboardDescriptor}       DashboardDescriptor
//
// Error codes follow JSON-RPC 2.0, plus three application codes that
// round-trip the catalog sentinel errors:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params
//   -32603  Internal error (marshal failure)
//   -32000  Application error (store failure)
//   -32002  model.ErrInvalid
//   -32004  model.ErrNotFound
//   -32009  model.ErrConflict

const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
	CodeApplication    = -32000
	CodeInvalid        = -32002
	CodeNotFound       = -32004
	CodeConflict       = -32009
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// Unwrap exposes the catalog sentinel matching the error code, so callers
// can use errors.Is on either side of the socket.
func (e *RPCError) Unwrap() error {
	switch e.Code {
	case CodeNotFound:
		return model.ErrNotFound
	case CodeConflict:
		return model.ErrConflict
	case CodeInvalid:
		return model.ErrInvalid
	}
	return nil
}

// appError converts a store error into its wire form.
func appError(err error) *RPCError {
	code := CodeApplication
	switch {
	case errors.Is(err, model.ErrNotFound):
		code = CodeNotFound
	case errors.Is(err, model.ErrConflict):
		code = CodeConflict
	case errors.Is(err, model.ErrInvalid):
		code = CodeInvalid
	}
	return &RPCError{Code: code, Message: err.Error()}
}

// DefaultSocketPath returns the default Unix socket path.
// It prefers $XDG_RUNTIME_DIR/portal/portal.sock, falling back to
// ~/.local/state/portal/portal.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "portal", "portal.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/portal.sock"
	}
	return filepath.Join(home, ".local", "state", "portal", "portal.sock")
}
