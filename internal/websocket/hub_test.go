package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dom/faceoff/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedClient(buffer int) *Client {
	return &Client{send: make(chan []byte, buffer)}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "client channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestHub_RegisterSendsConnected(t *testing.T) {
	hub := startHub(t)
	client := newBufferedClient(4)

	hub.Register(client)

	assert.Equal(t, MessageTypeConnected, receive(t, client).Type)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHub_BroadcastDropsStaleClients(t *testing.T) {
	hub := startHub(t)

	live := make([]*Client, 3)
	for i := range live {
		live[i] = newBufferedClient(4)
		hub.Register(live[i])
	}
	// buffer of one is filled by the connected frame
	stale := newBufferedClient(1)
	hub.Register(stale)
	require.Eventually(t, func() bool { return hub.ClientCount() == 4 }, time.Second, 5*time.Millisecond)

	match := &domain.Match{
		ID:           uuid.New(),
		CreatorID:    uuid.New(),
		InvitedID:    uuid.New(),
		CreatorPhoto: "c2VjcmV0",
		Status:       domain.MatchStatusPending,
	}
	hub.Publish(context.Background(), domain.MatchEventCreated, match)

	for _, c := range live {
		assert.Equal(t, MessageTypeConnected, receive(t, c).Type)
		msg := receive(t, c)
		assert.Equal(t, string(domain.MatchEventCreated), msg.Type)
		require.NotNil(t, msg.Match)
		assert.Equal(t, match.ID, msg.Match.ID)
		assert.Empty(t, msg.Match.CreatorPhoto)
	}

	require.Eventually(t, func() bool { return hub.ClientCount() == 3 }, time.Second, 5*time.Millisecond)

	// the stale client's channel is closed after the pending frame
	<-stale.send
	_, ok := <-stale.send
	assert.False(t, ok)
}

func TestHub_UnregisterClosesClient(t *testing.T) {
	hub := startHub(t)
	client := newBufferedClient(4)

	hub.Register(client)
	receive(t, client)
	hub.Unregister(client)

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-client.send
	assert.False(t, ok)
}

func TestHub_StopClosesEverything(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	client := newBufferedClient(4)
	hub.Register(client)
	receive(t, client)

	hub.Stop()
	hub.Stop()

	_, ok := <-client.send
	assert.False(t, ok)

	// calls after stop return instead of blocking
	hub.Broadcast([]byte("{}"))
	hub.Unregister(client)
	late := newBufferedClient(1)
	hub.Register(late)
	_, ok = <-late.send
	assert.False(t, ok)
}

func TestClient_TrySendAfterClose(t *testing.T) {
	client := newBufferedClient(1)
	client.Close()
	client.Close()

	assert.False(t, client.trySend([]byte("x")))
}
