package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/playrise/questengine/model"
	"github.com/playrise/questengine/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotify_PersistsRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	n := New(db, nil, zap.NewNop())

	n.Notify(context.Background(), 7, "New quest: Coin Bonus", "Collect 500 coins",
		map[string]interface{}{"quest_type": "coin-bonus"})

	var rows []model.Notification
	require.NoError(t, db.Where("user_id = ?", int64(7)).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "New quest: Coin Bonus", rows[0].Title)
	assert.Equal(t, 0, rows[0].Read)

	payload := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(rows[0].Payload, &payload))
	assert.Equal(t, "coin-bonus", payload["quest_type"])
}

func TestNotify_PublishesOnPubSub(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, ps := testutil.SetupTestCache(t)

	ctx := context.Background()
	ch, cancel, err := ps.Subscribe(ctx, "notify:7")
	require.NoError(t, err)
	defer cancel()

	n := New(db, ps, zap.NewNop())
	n.Notify(ctx, 7, "Quest ready", "", nil)

	select {
	case msg := <-ch:
		assert.Equal(t, "notify:7", msg.Channel)
		var record model.Notification
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &record))
		assert.Equal(t, "Quest ready", record.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a published notification")
	}
}

func TestNotify_SwallowsWriteFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&model.Notification{}))

	n := New(db, nil, zap.NewNop())
	// Must not panic or surface the error.
	n.Notify(context.Background(), 7, "lost", "", nil)
}
