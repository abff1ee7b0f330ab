package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"matchlink/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by lookups that require the record to exist.
var ErrNotFound = errors.New("record not found")

const chatReadyPrefix = "chat_ready:"

type Storage interface {
	UpsertChatMirror(ctx context.Context, row *models.ChatMirror) error
	GetChatMirror(ctx context.Context, chatRoomID string) (*models.ChatMirror, error)
	GetChatMirrorByMatch(ctx context.Context, matchID string) (*models.ChatMirror, error)

	SaveUser(ctx context.Context, user *models.User) error
	GetUserByWallet(ctx context.Context, address string) (*models.User, error)

	PublishChatReady(ctx context.Context, wallets []string, event models.ChatReadyEvent) error
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor. rdb may be nil for tools that never publish.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// Migrate creates or updates the tables this service owns.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(&models.ChatMirror{}, &models.User{})
}

// mirrorUpsertClause keeps participants immutable once written. The
// allowlist id only moves forward: an empty value never clears one that is
// already stored.
func mirrorUpsertClause(row *models.ChatMirror) clause.OnConflict {
	columns := []string{"updated_at"}
	if row.ChatAllowlistID != "" {
		columns = append([]string{"chat_allowlist_id"}, columns...)
	}
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_room_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}
}

// UpsertChatMirror inserts the row or updates its allowlist id in place.
func (s *Service) UpsertChatMirror(ctx context.Context, row *models.ChatMirror) error {
	if row.ChatRoomID == "" {
		return fmt.Errorf("chat mirror requires a chat room id")
	}
	err := s.DB.WithContext(ctx).Clauses(mirrorUpsertClause(row)).Create(row).Error
	if err != nil {
		log.Error().Err(err).Str("chat_room_id", row.ChatRoomID).Msg("failed to upsert chat mirror")
		return err
	}
	return nil
}

func (s *Service) GetChatMirror(ctx context.Context, chatRoomID string) (*models.ChatMirror, error) {
	var row models.ChatMirror
	err := s.DB.WithContext(ctx).Where("chat_room_id = ?", chatRoomID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("chat room %s: %w", chatRoomID, ErrNotFound)
	}
	if err != nil {
		log.Error().Err(err).Str("chat_room_id", chatRoomID).Msg("failed to get chat mirror")
		return nil, err
	}
	return &row, nil
}

// GetChatMirrorByMatch returns nil without an error when the match has no
// mirror row yet.
func (s *Service) GetChatMirrorByMatch(ctx context.Context, matchID string) (*models.ChatMirror, error) {
	var row models.ChatMirror
	err := s.DB.WithContext(ctx).Where("match_id = ?", matchID).
		Order("updated_at desc").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Error().Err(err).Str("match_id", matchID).Msg("failed to get chat mirror by match")
		return nil, err
	}
	return &row, nil
}

// SaveUser stores the profile, normalizing its wallet address.
func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	user.WalletAddress = models.NormalizeAddress(user.WalletAddress)
	return s.DB.WithContext(ctx).Save(user).Error
}

// GetUserByWallet returns nil without an error when no profile is bound to
// the address.
func (s *Service) GetUserByWallet(ctx context.Context, address string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).
		Where("wallet_address = ?", models.NormalizeAddress(address)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ChatReadyChannel is the pub/sub channel for one wallet.
func ChatReadyChannel(wallet string) string {
	return chatReadyPrefix + models.NormalizeAddress(wallet)
}

// PublishChatReady fans the event out to each wallet's channel.
func (s *Service) PublishChatReady(ctx context.Context, wallets []string, event models.ChatReadyEvent) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	for _, wallet := range wallets {
		if err := s.Redis.Publish(ctx, ChatReadyChannel(wallet), payload).Err(); err != nil {
			return fmt.Errorf("publish chat ready for %s: %w", wallet, err)
		}
	}
	return nil
}

// SubscribeChatReady streams the events published for wallet until ctx is
// done. The returned channel is closed when the subscription ends.
func (s *Service) SubscribeChatReady(ctx context.Context, wallet string) (<-chan models.WalletNotification, error) {
	if s.Redis == nil {
		return nil, fmt.Errorf("chat ready feed requires redis")
	}
	return s.stream(ctx, s.Redis.Subscribe(ctx, ChatReadyChannel(wallet)))
}

// SubscribeAllChatReady streams the events of every wallet. The realtime
// hub holds one such subscription per process.
func (s *Service) SubscribeAllChatReady(ctx context.Context) (<-chan models.WalletNotification, error) {
	if s.Redis == nil {
		return nil, fmt.Errorf("chat ready feed requires redis")
	}
	return s.stream(ctx, s.Redis.PSubscribe(ctx, chatReadyPrefix+"*"))
}

func (s *Service) stream(ctx context.Context, pubsub *redis.PubSub) (<-chan models.WalletNotification, error) {
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe chat ready: %w", err)
	}

	out := make(chan models.WalletNotification)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				n, err := decodeNotification(msg.Channel, msg.Payload)
				if err != nil {
					log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed chat ready payload")
					continue
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func decodeNotification(channel, payload string) (models.WalletNotification, error) {
	wallet, ok := strings.CutPrefix(channel, chatReadyPrefix)
	if !ok || wallet == "" {
		return models.WalletNotification{}, fmt.Errorf("unexpected channel %q", channel)
	}
	var event models.ChatReadyEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return models.WalletNotification{}, err
	}
	return models.WalletNotification{Wallet: wallet, Event: event}, nil
}
