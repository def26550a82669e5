// Package rpctest provides a scripted websocket JSON-RPC node for tests.
package rpctest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dmagro/substrate-meta/internal/rpc"
)

// Reply tells the server how to answer one request.
type Reply struct {
	Result interface{}   // Sent as "result" unless Error is set
	Error  *rpc.RPCError // Sent as "error"
	Raw    []byte        // Sent verbatim instead of an envelope
	Drop   bool          // Close the connection without answering
	Silent bool          // Never answer, keep the connection open
}

// Handler scripts the server. It is called once per request, in arrival order.
type Handler func(req rpc.Request) Reply

// Server is a fake node listening on a local websocket.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	methods []string
	conns   int
}

// NewServer starts a fake node that answers every request with handler.
func NewServer(handler Handler) *Server {
	s := &Server{}
	upgrader := websocket.Upgrader{}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		s.mu.Lock()
		s.conns++
		s.mu.Unlock()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req rpc.Request
			if err := json.Unmarshal(data, &req); err != nil {
				return
			}

			s.mu.Lock()
			s.methods = append(s.methods, req.Method)
			s.mu.Unlock()

			reply := handler(req)
			switch {
			case reply.Drop:
				return
			case reply.Silent:
				continue
			case reply.Raw != nil:
				err = conn.WriteMessage(websocket.TextMessage, reply.Raw)
			default:
				env := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
				if reply.Error != nil {
					env["error"] = reply.Error
				} else {
					env["result"] = reply.Result
				}
				err = conn.WriteJSON(env)
			}
			if err != nil {
				return
			}
		}
	}))
	return s
}

// Result answers every request with the same result.
func Result(result interface{}) Handler {
	return func(rpc.Request) Reply { return Reply{Result: result} }
}

// Endpoint returns the ws:// address of the server.
func (s *Server) Endpoint() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

// Methods returns the methods received so far, in order.
func (s *Server) Methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.methods...)
}

// Connections returns how many websocket sessions were accepted.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns
}
