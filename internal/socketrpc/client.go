package socketrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tinytelemetry/portal/internal/model"
)

// defaultCallTimeout bounds a call whose context carries no deadline.
const defaultCallTimeout = 30 * time.Second

var _ model.PortalAPI = (*Client)(nil)

// Client implements model.PortalAPI over a Unix domain socket using JSON-RPC 2.0.
type Client struct {
	conn    net.Conn
	mu      sync.Mutex
	nextID  int
	scanner *bufio.Scanner
	encoder *json.Encoder
}

// Dial connects to the socket RPC server at the given path.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("socketrpc: dial: %w", err)
	}
	return &Client{
		conn:    conn,
		scanner: newScanner(conn),
		encoder: json.NewEncoder(conn),
	}, nil
}

func newScanner(conn net.Conn) *bufio.Scanner {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	return scanner
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call performs a JSON-RPC call and unmarshals the result into dest.
// The context deadline becomes the connection deadline; cancellation
// interrupts a blocked read.
func (c *Client) call(ctx context.Context, method string, params interface{}, dest interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	paramsData, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("socketrpc: marshal params: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  paramsData,
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultCallTimeout)
	}
	c.conn.SetDeadline(deadline)
	defer c.conn.SetDeadline(time.Time{})

	stop := context.AfterFunc(ctx, func() { c.conn.SetDeadline(time.Now()) })
	defer stop()

	if err := c.encoder.Encode(req); err != nil {
		return c.ctxErr(ctx, fmt.Errorf("socketrpc: send: %w", err))
	}

	// Responses to earlier calls that timed out may still be queued on the
	// connection; drain them until our id comes back.
	var resp Response
	for {
		if !c.scanner.Scan() {
			if err := c.scanner.Err(); err != nil {
				// A scanner stops for good after an error; start a fresh one
				// so a timed-out call leaves the client usable.
				c.scanner = newScanner(c.conn)
				return c.ctxErr(ctx, fmt.Errorf("socketrpc: read: %w", err))
			}
			return fmt.Errorf("socketrpc: connection closed")
		}
		resp = Response{}
		if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
			return fmt.Errorf("socketrpc: unmarshal response: %w", err)
		}
		if resp.ID == id {
			break
		}
		if resp.ID > id {
			return fmt.Errorf("socketrpc: response id %d does not match request %d", resp.ID, id)
		}
	}

	if resp.Error != nil {
		return resp.Error
	}

	if dest != nil {
		if err := json.Unmarshal(resp.Result, dest); err != nil {
			return fmt.Errorf("socketrpc: unmarshal result: %w", err)
		}
	}
	return nil
}

// ctxErr prefers the context error when the context caused the failure.
func (c *Client) ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
		return context.DeadlineExceeded
	}
	return err
}

func (c *Client) GetWidgetsInfo(ctx context.Context) ([]model.WidgetDescriptor, error) {
	var result []model.WidgetDescriptor
	err := c.call(ctx, "GetWidgetsInfo", map[string]interface{}{}, &result)
	return result, err
}

func (c *Client) GetWidgetDefinition(ctx context.Context, name string) (model.WidgetDefinition, error) {
	var result model.WidgetDefinition
	err := c.call(ctx, "GetWidgetDefinition", map[string]interface{}{"Name": name}, &result)
	return result, err
}

func (c *Client) GetDashboardList(ctx context.Context) ([]model.DashboardDescriptor, error) {
	var result []model.DashboardDescriptor
	err := c.call(ctx, "GetDashboardList", map[string]interface{}{}, &result)
	return result, err
}

func (c *Client) GetDashboard(ctx context.Context, url string) (model.DashboardDescriptor, error) {
	var result model.DashboardDescriptor
	err := c.call(ctx, "GetDashboard", map[string]interface{}{"URL": url}, &result)
	return result, err
}

func (c *Client) CreateDashboard(ctx context.Context, d model.DashboardDescriptor) (model.DashboardDescriptor, error) {
	var result model.DashboardDescriptor
	err := c.call(ctx, "CreateDashboard", map[string]interface{}{"Dashboard": d}, &result)
	return result, err
}
