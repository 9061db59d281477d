package inbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/models"
)

func TestInbox_PushStampsAndBroadcasts(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	hub := NewHub(logging.NewNop())
	conn := &fakeConn{}
	require.NoError(t, hub.Add(7, conn))

	ib := New(NewMemoryStore(DefaultCapacity), hub, clock, logging.NewNop())

	n, err := ib.Push(context.Background(), models.Notification{
		FarmerID: 7,
		Title:    "Critical temperature",
		Message:  "2.0°C",
		Type:     "sensor_alert",
		Severity: models.SeverityCritical,
		Read:     true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, clock.Now(), n.CreatedAt)
	assert.False(t, n.Read)

	count, err := ib.UnreadCount(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Eventually(t, func() bool { return len(conn.sent()) == 1 }, time.Second, 5*time.Millisecond)
	var got event
	require.NoError(t, json.Unmarshal(conn.sent()[0], &got))
	assert.Equal(t, "notification", got.Type)
	assert.Equal(t, n.ID, got.Notification.ID)
	assert.Equal(t, "Critical temperature", got.Notification.Title)
}

func TestInbox_DistinctIDs(t *testing.T) {
	ib := New(NewMemoryStore(DefaultCapacity), nil, nil, logging.NewNop())
	a, err := ib.Push(context.Background(), models.Notification{FarmerID: 7})
	require.NoError(t, err)
	b, err := ib.Push(context.Background(), models.Notification{FarmerID: 7})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	require.NoError(t, ib.MarkRead(context.Background(), 7, a.ID))
	require.NoError(t, ib.Remove(context.Background(), 7, b.ID))
	items, err := ib.List(context.Background(), 7, models.ListOptions{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestInbox_QuietPushIsStoredButNotBroadcast(t *testing.T) {
	hub := NewHub(logging.NewNop())
	conn := &fakeConn{}
	require.NoError(t, hub.Add(7, conn))
	ib := New(NewMemoryStore(DefaultCapacity), hub, nil, logging.NewNop())

	_, err := ib.Push(context.Background(), models.Notification{FarmerID: 7, Title: "quiet", Quiet: true})
	require.NoError(t, err)
	_, err = ib.Push(context.Background(), models.Notification{FarmerID: 7, Title: "loud"})
	require.NoError(t, err)

	count, err := ib.UnreadCount(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.Eventually(t, func() bool { return len(conn.sent()) == 1 }, time.Second, 5*time.Millisecond)
	var got event
	require.NoError(t, json.Unmarshal(conn.sent()[0], &got))
	assert.Equal(t, "loud", got.Notification.Title)
}
