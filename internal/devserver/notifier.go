// Package devserver exposes a socket.io side channel for live dev sessions.
// The finalizer broadcasts over it after a settle cycle that registered new
// style fragments, so browser clients can refresh styles without waiting
// for the host's own file watching to notice the artifact change.
package devserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/zishang520/socket.io/v2/socket"

	"github.com/nmarshall23/vuetify-loader/internal/ctxlog"
)

// Notifier is a minimal socket.io server that fans one event out to every
// connected client.
type Notifier struct {
	io  *socket.Server
	srv *http.Server
	ln  net.Listener

	mu      sync.Mutex
	clients map[socket.SocketId]*socket.Socket
}

// NewNotifier starts a notifier listening on addr (host:port, port 0 picks
// a free one) and serves the socket.io endpoint under /socket.io/.
func NewNotifier(ctx context.Context, addr string) (*Notifier, error) {
	logger := ctxlog.FromContext(ctx)

	n := &Notifier{
		io:      socket.NewServer(nil, nil),
		clients: make(map[socket.SocketId]*socket.Socket),
	}

	err := n.io.On("connection", func(args ...any) {
		client, ok := args[0].(*socket.Socket)
		if !ok {
			return
		}
		logger.Debug("dev client connected", "sid", client.Id())
		n.mu.Lock()
		n.clients[client.Id()] = client
		n.mu.Unlock()

		client.On("disconnect", func(...any) {
			logger.Debug("dev client disconnected", "sid", client.Id())
			n.mu.Lock()
			delete(n.clients, client.Id())
			n.mu.Unlock()
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register connection handler: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	n.ln = ln

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", n.io.ServeHandler(nil))
	n.srv = &http.Server{Handler: mux}
	go func() {
		if err := n.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Warn("dev notifier server stopped", "error", err)
		}
	}()

	logger.Info("dev notifier listening", "addr", ln.Addr().String())
	return n, nil
}

// Addr returns the bound listen address.
func (n *Notifier) Addr() string {
	return n.ln.Addr().String()
}

// Broadcast emits an event to every connected client. Emission failures are
// per-client and ignored; a missed reload hint costs one manual refresh.
func (n *Notifier) Broadcast(event string, payload any) {
	n.mu.Lock()
	clients := make([]*socket.Socket, 0, len(n.clients))
	for _, client := range n.clients {
		clients = append(clients, client)
	}
	n.mu.Unlock()

	for _, client := range clients {
		_ = client.Emit(event, payload)
	}
}

// Close stops accepting clients and shuts the HTTP listener down.
func (n *Notifier) Close() error {
	n.io.Close(nil)
	return n.srv.Close()
}
