package sessions

import (
	"context"
	"testing"

	"github.com/agentcore/agentcore/pkg/models"
	"github.com/google/uuid"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreSessionLifecycle(t *testing.T) {
	store := newTestSQLiteStore(t)
	session := &models.Session{
		ID:        uuid.NewString(),
		AgentID:   "agent",
		Channel:   models.ChannelType("api"),
		ChannelID: "user",
		Key:       "agent:api:user",
	}

	if err := store.Create(context.Background(), session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	loaded, err := store.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if loaded.Key != session.Key {
		t.Fatalf("expected key %q, got %q", session.Key, loaded.Key)
	}

	loaded.Title = "updated"
	if err := store.Update(context.Background(), loaded); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	updated, err := store.Get(context.Background(), loaded.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if updated.Title != "updated" {
		t.Fatalf("expected title to update")
	}

	byKey, err := store.GetByKey(context.Background(), session.Key)
	if err != nil {
		t.Fatalf("GetByKey() error = %v", err)
	}
	if byKey == nil || byKey.ID != session.ID {
		t.Fatalf("expected GetByKey to resolve session %q", session.ID)
	}

	if err := store.Delete(context.Background(), updated.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(context.Background(), updated.ID); err == nil {
		t.Fatalf("expected Get() to fail after delete")
	}
}

func TestSQLiteStoreGetOrCreate(t *testing.T) {
	store := newTestSQLiteStore(t)

	first, err := store.GetOrCreate(context.Background(), "agent:api:user", "agent", models.ChannelType("api"), "user")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	second, err := store.GetOrCreate(context.Background(), "agent:api:user", "agent", models.ChannelType("api"), "user")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected GetOrCreate to be idempotent, got %q and %q", first.ID, second.ID)
	}
}

func TestSQLiteStoreMessagesAndHistory(t *testing.T) {
	store := newTestSQLiteStore(t)
	session, err := store.GetOrCreate(context.Background(), "agent:api:user", "agent", models.ChannelType("api"), "user")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	for i, content := range []string{"hello", "world", "again"} {
		msg := &models.Message{
			SessionID: session.ID,
			Role:      models.RoleUser,
			Content:   content,
		}
		if err := store.AppendMessage(context.Background(), session.ID, msg); err != nil {
			t.Fatalf("AppendMessage(%d) error = %v", i, err)
		}
	}

	history, err := store.GetHistory(context.Background(), session.ID, 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	if history[0].Content != "hello" || history[2].Content != "again" {
		t.Fatalf("expected history in chronological order, got %+v", history)
	}
}

func TestSQLiteStoreListFiltersByAgentAndChannel(t *testing.T) {
	store := newTestSQLiteStore(t)

	if _, err := store.GetOrCreate(context.Background(), "agent:api:a", "agent", models.ChannelType("api"), "a"); err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if _, err := store.GetOrCreate(context.Background(), "agent:slack:b", "agent", models.ChannelType("slack"), "b"); err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if _, err := store.GetOrCreate(context.Background(), "other:api:c", "other", models.ChannelType("api"), "c"); err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	sessions, err := store.List(context.Background(), "agent", ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions for agent, got %d", len(sessions))
	}

	filtered, err := store.List(context.Background(), "agent", ListOptions{Channel: models.ChannelType("slack")})
	if err != nil {
		t.Fatalf("List() with channel filter error = %v", err)
	}
	if len(filtered) != 1 || filtered[0].ChannelID != "b" {
		t.Fatalf("expected channel-filtered list to contain only session b, got %+v", filtered)
	}
}

var _ Store = (*SQLiteStore)(nil)
