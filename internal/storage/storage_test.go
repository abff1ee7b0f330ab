package storage

import (
	"context"
	"testing"

	"matchlink/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dryRunDB builds SQL against the postgres dialect without connecting.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=test dbname=test sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true, SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db
}

func TestMirrorUpsertClause_WithAllowlist(t *testing.T) {
	c := mirrorUpsertClause(&models.ChatMirror{ChatRoomID: "0xc1", ChatAllowlistID: "0xl1"})

	assert.Equal(t, []clause.Column{{Name: "chat_room_id"}}, c.Columns)
	require.Len(t, c.DoUpdates, 2)
	assert.Equal(t, "chat_allowlist_id", c.DoUpdates[0].Column.Name)
	assert.Equal(t, "updated_at", c.DoUpdates[1].Column.Name)
}

func TestMirrorUpsertClause_EmptyAllowlistNeverClears(t *testing.T) {
	c := mirrorUpsertClause(&models.ChatMirror{ChatRoomID: "0xc1"})

	require.Len(t, c.DoUpdates, 1)
	assert.Equal(t, "updated_at", c.DoUpdates[0].Column.Name)
}

func TestUpsertChatMirror_SQL(t *testing.T) {
	db := dryRunDB(t)
	row := &models.ChatMirror{
		ChatRoomID:      "0xc1",
		ChatAllowlistID: "0xl1",
		MatchID:         "0xm1",
		Participant1:    "user-a",
		Participant2:    "user-b",
	}

	stmt := db.Clauses(mirrorUpsertClause(row)).Create(row).Statement
	sql := stmt.SQL.String()

	assert.Contains(t, sql, `INSERT INTO "chat_mirrors"`)
	assert.Contains(t, sql, `ON CONFLICT ("chat_room_id") DO UPDATE SET`)
	assert.Contains(t, sql, `"chat_allowlist_id"="excluded"."chat_allowlist_id"`)
	assert.NotContains(t, sql, `"participant1"="excluded"`)
}

func TestUpsertChatMirror_RequiresChatRoom(t *testing.T) {
	s := NewStorageService(dryRunDB(t), nil)
	err := s.UpsertChatMirror(context.Background(), &models.ChatMirror{})
	assert.Error(t, err)
}

func TestPublishChatReady_NoRedisIsNoop(t *testing.T) {
	s := NewStorageService(nil, nil)
	err := s.PublishChatReady(context.Background(), []string{"0xa"}, models.ChatReadyEvent{ChatRoomID: "0xc1"})
	assert.NoError(t, err)
}

func TestChatReadyChannel(t *testing.T) {
	assert.Equal(t, "chat_ready:0xabc", ChatReadyChannel(" 0xABC"))
}

func TestDecodeNotification(t *testing.T) {
	n, err := decodeNotification("chat_ready:0xabc", `{"match_id":"0xm1","chat_room_id":"0xc1","participants":["u1","0xb"]}`)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", n.Wallet)
	assert.Equal(t, "0xc1", n.Event.ChatRoomID)
	assert.Equal(t, []string{"u1", "0xb"}, n.Event.Participants)

	_, err = decodeNotification("other:0xabc", `{}`)
	assert.Error(t, err)

	_, err = decodeNotification("chat_ready:0xabc", `not json`)
	assert.Error(t, err)
}

func TestSubscribe_RequiresRedis(t *testing.T) {
	s := NewStorageService(nil, nil)
	_, err := s.SubscribeAllChatReady(context.Background())
	assert.Error(t, err)
}
