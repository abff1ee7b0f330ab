package chatlink_test

import (
	"context"
	"encoding/json"
	"fmt"

	"matchlink/backend/internal/config"
	"matchlink/backend/internal/ledger"
	"matchlink/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockLedger is a testify mock of ledger.Client.
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) QueryEvents(ctx context.Context, q ledger.EventQuery) (*ledger.EventPage, error) {
	args := m.Called(q.MoveEventType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.EventPage), args.Error(1)
}

func (m *MockLedger) GetObject(ctx context.Context, id string) (*ledger.Object, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Object), args.Error(1)
}

func (m *MockLedger) GetDynamicFieldObject(ctx context.Context, parentID string, name ledger.DynamicFieldName) (*ledger.Object, error) {
	args := m.Called(parentID, name.Value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Object), args.Error(1)
}

func (m *MockLedger) QueryTransactionBlocks(ctx context.Context, filter ledger.TransactionFilter, limit int) (*ledger.TransactionPage, error) {
	args := m.Called(filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.TransactionPage), args.Error(1)
}

func (m *MockLedger) GetTransactionBlock(ctx context.Context, digest string) (*ledger.TransactionBlock, error) {
	args := m.Called(digest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.TransactionBlock), args.Error(1)
}

func (m *MockLedger) DevInspect(ctx context.Context, sender, txBytes string) (*ledger.DevInspectResult, error) {
	args := m.Called(sender, txBytes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.DevInspectResult), args.Error(1)
}

func (m *MockLedger) Execute(ctx context.Context, txBytes string, signatures []string) (*ledger.TransactionBlock, error) {
	args := m.Called(txBytes, signatures)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.TransactionBlock), args.Error(1)
}

// MockStorage is a testify mock of storage.Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) UpsertChatMirror(ctx context.Context, row *models.ChatMirror) error {
	args := m.Called(row)
	return args.Error(0)
}

func (m *MockStorage) GetChatMirror(ctx context.Context, chatRoomID string) (*models.ChatMirror, error) {
	args := m.Called(chatRoomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMirror), args.Error(1)
}

func (m *MockStorage) GetChatMirrorByMatch(ctx context.Context, matchID string) (*models.ChatMirror, error) {
	args := m.Called(matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMirror), args.Error(1)
}

func (m *MockStorage) SaveUser(ctx context.Context, user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockStorage) GetUserByWallet(ctx context.Context, address string) (*models.User, error) {
	args := m.Called(address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) PublishChatReady(ctx context.Context, wallets []string, event models.ChatReadyEvent) error {
	args := m.Called(wallets, event)
	return args.Error(0)
}

var testContracts = config.Contracts{
	PackageID:           "0xa1",
	UsageTrackerID:      "0xb1",
	MatchChatRegistryID: "0xb2",
	ChatRegistryID:      "0xb3",
	AllowlistRegistryID: "0xb4",
	ClockID:             "0x6",
}

var (
	chatCreatedType      = testContracts.TypeName(config.ChatCreatedEvent)
	allowlistCreatedType = testContracts.TypeName(config.AllowlistCreatedEvent)
)

func rawFields(fields map[string]any) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		b, _ := json.Marshal(v)
		out[k] = b
	}
	return out
}

func matchObject(id, a, b string, status int) *ledger.Object {
	return &ledger.Object{
		ObjectID: id,
		Type:     "0xa1::core::Match",
		Content: &ledger.ObjectContent{
			DataType: "moveObject",
			Type:     "0xa1::core::Match",
			Fields:   rawFields(map[string]any{"user_a": a, "user_b": b, "status": status}),
		},
	}
}

func fieldObject(value string) *ledger.Object {
	return &ledger.Object{
		ObjectID: "0xdf",
		Content: &ledger.ObjectContent{
			DataType: "moveObject",
			Fields:   rawFields(map[string]any{"name": "key", "value": value}),
		},
	}
}

func eventPage(events ...ledger.Event) *ledger.EventPage {
	return &ledger.EventPage{Data: events}
}

func event(typ string, fields map[string]any) ledger.Event {
	return ledger.Event{Type: typ, ParsedJSON: rawFields(fields)}
}

func createdBlock(digest string, changes ...ledger.ObjectChange) *ledger.TransactionBlock {
	return &ledger.TransactionBlock{
		Digest:        digest,
		Effects:       &ledger.Effects{Status: ledger.ExecutionStatus{Status: "success"}},
		ObjectChanges: changes,
	}
}

// withEvents attaches emitted events to a block.
func withEvents(block *ledger.TransactionBlock, events ...ledger.Event) *ledger.TransactionBlock {
	block.Events = append(block.Events, events...)
	return block
}

func chatCreated(matchID, chatID string) ledger.Event {
	return event(chatCreatedType, map[string]any{"match_id": matchID, "chat_id": chatID})
}

func allowlistCreated(chatID, allowlistID string) ledger.Event {
	return event(allowlistCreatedType, map[string]any{"chat_id": chatID, "allowlist_id": allowlistID})
}

func created(objectType, id string) ledger.ObjectChange {
	return ledger.ObjectChange{Type: "created", ObjectType: objectType, ObjectID: id}
}

func notFound(id string) error {
	return fmt.Errorf("object %s: %w", id, ledger.ErrObjectNotFound)
}
