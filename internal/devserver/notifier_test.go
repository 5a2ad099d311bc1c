package devserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

func TestNotifier_BroadcastReachesClient(t *testing.T) {
	n, err := NewNotifier(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)
	defer n.Close()

	opts := socket.DefaultOptions()
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager("http://"+n.Addr(), opts)
	client := manager.Socket("/", opts)
	defer client.Disconnect()

	connected := make(chan struct{}, 1)
	events := make(chan any, 4)

	client.On("connect", func(...any) {
		connected <- struct{}{}
	})
	client.On("styles:updated", func(data ...any) {
		var payload any
		if len(data) > 0 {
			payload = data[0]
		}
		events <- payload
	})
	client.Connect()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("client never connected")
	}

	n.Broadcast("styles:updated", map[string]any{"fragments": 2})

	select {
	case payload := <-events:
		data, ok := payload.(map[string]any)
		require.True(t, ok, "payload should arrive as a decoded object, got %T", payload)
		assert.EqualValues(t, 2, data["fragments"])
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast never arrived")
	}

	t.Run("no broadcast means no event", func(t *testing.T) {
		select {
		case payload := <-events:
			t.Fatalf("unexpected event: %v", payload)
		case <-time.After(200 * time.Millisecond):
		}
	})
}

func TestNotifier_BroadcastWithoutClients(t *testing.T) {
	n, err := NewNotifier(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)
	defer n.Close()

	// Nothing to assert beyond "does not block or panic".
	n.Broadcast("styles:updated", map[string]any{"fragments": 0})
}

func TestNotifier_RejectsBusyAddress(t *testing.T) {
	n, err := NewNotifier(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)
	defer n.Close()

	_, err = NewNotifier(context.Background(), n.Addr())
	assert.Error(t, err)
}
