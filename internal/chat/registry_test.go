package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(username string, buffer int) *Client {
	return &Client{Username: username, send: make(chan []byte, buffer)}
}

func TestRegistryConnectReplacesPrevious(t *testing.T) {
	registry := NewRegistry()

	first := testClient("tek1", 1)
	second := testClient("tek1", 1)

	registry.Connect(first)
	registry.Connect(second)

	// The replaced client's send channel is closed.
	_, open := <-first.send
	assert.False(t, open)

	registry.Send("tek1", []byte("hello"))
	select {
	case payload := <-second.send:
		assert.Equal(t, "hello", string(payload))
	default:
		t.Fatal("expected delivery to replacement connection")
	}
}

func TestRegistryDisconnectIdempotent(t *testing.T) {
	registry := NewRegistry()
	c := testClient("tek1", 1)

	registry.Connect(c)
	registry.Disconnect(c)
	registry.Disconnect(c)

	assert.Empty(t, registry.Online())
}

func TestRegistryDisconnectIgnoresReplacedClient(t *testing.T) {
	registry := NewRegistry()
	old := testClient("tek1", 1)
	current := testClient("tek1", 1)

	registry.Connect(old)
	registry.Connect(current)
	registry.Disconnect(old)

	// The newer connection must survive the stale disconnect.
	registry.Send("tek1", []byte("still here"))
	require.Len(t, current.send, 1)
}

func TestRegistrySendToOfflineIsNoOp(t *testing.T) {
	registry := NewRegistry()
	registry.Send("ghost", []byte("anyone?"))
}

func TestRegistrySendFailureImpliesDisconnect(t *testing.T) {
	registry := NewRegistry()
	c := testClient("tek1", 1)
	registry.Connect(c)

	registry.Send("tek1", []byte("one"))
	// Buffer full: this delivery fails and removes the connection.
	registry.Send("tek1", []byte("two"))

	assert.Empty(t, registry.Online())

	// Channel was closed by the registry; drain the buffered frame first.
	assert.Equal(t, "one", string(<-c.send))
	_, open := <-c.send
	assert.False(t, open)
}

func TestRegistrySendDuringReconnectChurn(t *testing.T) {
	// Concurrent deliveries while the same username reconnects over and over.
	// A send racing a channel close would panic here.
	registry := NewRegistry()
	registry.Connect(testClient("tek1", 1))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			registry.Connect(testClient("tek1", 1))
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				registry.Send("tek1", []byte("ping"))
			}
		}()
	}
	wg.Wait()
	<-done
}

func TestRegistryShutdownClosesAll(t *testing.T) {
	registry := NewRegistry()
	a := testClient("tek1", 1)
	b := testClient("reg1", 1)
	registry.Connect(a)
	registry.Connect(b)

	registry.Shutdown()

	assert.Empty(t, registry.Online())
	_, open := <-a.send
	assert.False(t, open)
	_, open = <-b.send
	assert.False(t, open)
}
