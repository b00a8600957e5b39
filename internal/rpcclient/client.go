// Package rpcclient provides a JSON-over-WebSocket RPC client for Kaspa nodes.
package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gorilla/websocket"

	"github.com/Klingon-tech/kaswallet/internal/log"
)

// ErrConnectionFailure is returned when no resolver can be reached or the
// connection drops while a request is in flight.
var ErrConnectionFailure = errors.New("node connection failure")

// ErrUnsupportedEncoding is returned for wire encodings other than JSON.
var ErrUnsupportedEncoding = errors.New("unsupported rpc encoding")

// EncodingJSON is the only supported wire encoding.
const EncodingJSON = "json"

// Defaults for Options.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultConnectAttempts = 3
	DefaultRetryDelay      = 500 * time.Millisecond
)

// Options configures a Client.
type Options struct {
	Encoding        string
	Timeout         time.Duration // dial and per-request timeout
	ConnectAttempts uint          // rounds over the resolver list
	RetryDelay      time.Duration
}

func (o *Options) setDefaults() {
	if o.Encoding == "" {
		o.Encoding = EncodingJSON
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ConnectAttempts == 0 {
		o.ConnectAttempts = DefaultConnectAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
}

// request is a wire request.
type request struct {
	ID     uint64 `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// response is a wire response.
type response struct {
	ID     uint64          `json:"id"`
	Params json.RawMessage `json:"params,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPCError is returned when the node responds with an error.
type RPCError struct {
	Method  string
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d in %s: %s", e.Code, e.Method, e.Message)
}

// Client is a WebSocket RPC client. Requests may be issued concurrently;
// responses are matched to requests by id.
type Client struct {
	resolvers []string
	opts      Options
	dialer    *websocket.Dialer

	writeMu sync.Mutex // serializes writes on conn

	mu      sync.Mutex
	conn    *websocket.Conn
	url     string
	pending map[uint64]chan response

	nextID atomic.Uint64
}

// New creates a client for the given resolver URLs (ws:// or wss://).
// No connection is made until Connect.
func New(resolvers []string, opts Options) (*Client, error) {
	if len(resolvers) == 0 {
		return nil, fmt.Errorf("%w: no resolver urls", ErrConnectionFailure)
	}
	opts.setDefaults()
	if opts.Encoding != EncodingJSON {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, opts.Encoding)
	}
	return &Client{
		resolvers: append([]string(nil), resolvers...),
		opts:      opts,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.Timeout,
		},
		pending: make(map[uint64]chan response),
	}, nil
}

// Connect dials the resolvers in order until one accepts, retrying the
// whole list up to ConnectAttempts times. Connecting an already connected
// client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	connected := c.conn != nil
	c.mu.Unlock()
	if connected {
		return nil
	}

	var (
		conn *websocket.Conn
		url  string
	)
	next := 0
	err := retry.Do(
		func() error {
			url = c.resolvers[next%len(c.resolvers)]
			next++
			dialCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
			defer cancel()
			var err error
			conn, _, err = c.dialer.DialContext(dialCtx, url, nil)
			if err != nil {
				if ctx.Err() != nil {
					return retry.Unrecoverable(ctx.Err())
				}
				return err
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.opts.ConnectAttempts*uint(len(c.resolvers))),
		retry.Delay(c.opts.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.RPC.Warn().Err(err).Str("url", url).Uint("attempt", n+1).Msg("Resolver unreachable, trying next")
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailure, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.url = url
	c.mu.Unlock()
	go c.readLoop(conn)

	log.RPC.Info().Str("url", url).Msg("Connected to node")
	return nil
}

// URL returns the resolver the client is connected to, or "".
func (c *Client) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// Close closes the connection and fails all in-flight requests.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	err := conn.Close()
	c.drop(conn)
	return err
}

// readLoop dispatches responses until the connection fails.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var resp response
		if err := conn.ReadJSON(&resp); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.RPC.Debug().Err(err).Msg("Read loop stopped")
			}
			c.drop(conn)
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

// drop detaches conn and closes every pending request channel.
func (c *Client) drop(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return
	}
	c.conn = nil
	c.url = ""
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// Call invokes method and decodes the response params into result.
// If result is nil, the response params are discarded.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	id := c.nextID.Add(1)
	ch := make(chan response, 1)

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: not connected", ErrConnectionFailure)
	}
	c.pending[id] = ch
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.opts.Timeout))
	err := conn.WriteJSON(request{ID: id, Method: method, Params: params})
	c.writeMu.Unlock()
	if err != nil {
		forget()
		return fmt.Errorf("%w: send %s: %v", ErrConnectionFailure, method, err)
	}

	timer := time.NewTimer(c.opts.Timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return fmt.Errorf("%w: connection closed during %s", ErrConnectionFailure, method)
		}
		if resp.Error != nil {
			return &RPCError{Method: method, Code: resp.Error.Code, Message: resp.Error.Message}
		}
		if result != nil && len(resp.Params) > 0 {
			if err := json.Unmarshal(resp.Params, result); err != nil {
				return fmt.Errorf("decode %s response: %w", method, err)
			}
		}
		return nil
	case <-timer.C:
		forget()
		return fmt.Errorf("%w: %s timed out after %s", ErrConnectionFailure, method, c.opts.Timeout)
	case <-ctx.Done():
		forget()
		return ctx.Err()
	}
}
