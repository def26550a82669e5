package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Options tunes the websocket dial.
type Options struct {
	HandshakeTimeout time.Duration // 0 = no handshake deadline beyond ctx
}

// Client is a JSON-RPC client bound to one websocket connection.
//
// A single reader goroutine owns the read side of the socket and hands each
// response to the caller waiting on its ID. Writes are serialized by writeMu,
// so Call is safe for concurrent use.
type Client struct {
	url  string
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan *Response
	err     error // why the connection stopped; nil while open

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Dial opens a websocket to url and starts the response reader.
//
// Parameters:
//   - ctx: Bounds the TCP connect and the websocket handshake. Cancelling it
//     after Dial returns has no effect on the open connection.
//   - url: ws:// or wss:// endpoint of the node, e.g. ws://127.0.0.1:9944
//   - opts: Handshake tuning; the zero value waits as long as ctx allows
//
// Returns:
//   - *Client: Open session; the caller must Close it
//   - error: Dial failure. A handshake the server answered with a non-101
//     status carries that status, e.g. "handshake rejected with HTTP 403".
//
// Proxy settings come from the environment (HTTPS_PROXY, NO_PROXY), as with
// net/http.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: handshake rejected with HTTP %d: %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Client{
		url:     url,
		conn:    conn,
		pending: make(map[uint64]chan *Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// URL returns the endpoint the client dialed.
func (c *Client) URL() string { return c.url }

// Call sends one request and blocks until its response arrives, ctx is done,
// or the connection stops. A node-side failure is returned as *RPCError.
func (c *Client) Call(ctx context.Context, method string, params ...interface{}) (*Response, error) {
	if params == nil {
		params = []interface{}{}
	}

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	c.nextID++
	id := c.nextID
	ch := make(chan *Response, 1)
	c.pending[id] = ch
	c.mu.Unlock()
	defer c.forget(id)

	body, err := json.Marshal(Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      id,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	if err := c.write(ctx, body); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	var resp *Response
	select {
	case resp = <-ch:
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", method, ctx.Err())
	case <-c.done:
		// The reader may have delivered right before stopping.
		select {
		case resp = <-ch:
		default:
			return nil, fmt.Errorf("%s: connection lost before response: %w", method, c.reason())
		}
	}

	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp, nil
}

// Close sends a close frame, tears down the socket and fails pending calls.
// It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		if c.err == nil {
			c.err = ErrClosed
		}
		c.mu.Unlock()

		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()

		c.closeErr = c.conn.Close()
	})
	<-c.done
	return c.closeErr
}

func (c *Client) write(ctx context.Context, body []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline() // zero time clears any previous deadline
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, body)
}

func (c *Client) readLoop() {
	defer close(c.done)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.stop(err)
			return
		}

		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			// A frame we cannot parse may be our answer cut short; nothing
			// on this socket can be trusted after it.
			c.stop(fmt.Errorf("malformed frame (%d bytes): %w", len(data), err))
			_ = c.conn.Close()
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()

		if ok {
			ch <- &resp
		}
	}
}

func (c *Client) stop(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *Client) reason() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		return ErrClosed
	}
	return c.err
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}
