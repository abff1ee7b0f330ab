// Package chatlink links on-chain matches to their chat room and allowlist:
// it resolves what already exists, builds the follow-up transaction, and
// reconciles submitted transactions into the local mirror.
package chatlink

import (
	"context"
	"fmt"
	"math"

	"matchlink/backend/internal/config"
	"matchlink/backend/internal/ledger"
	"matchlink/backend/internal/models"

	"github.com/rs/zerolog/log"
)

// Action is the follow-up a match needs.
type Action string

const (
	ActionNone            Action = "none"
	ActionCreateAllowlist Action = "create_allowlist"
	ActionCreateChat      Action = "create_chat"
)

func (a Action) Valid() bool {
	switch a {
	case ActionNone, ActionCreateAllowlist, ActionCreateChat:
		return true
	}
	return false
}

// Resolution is the outcome of resolving a match.
type Resolution struct {
	Action          Action        `json:"action"`
	MatchID         string        `json:"match_id"`
	ChatRoomID      string        `json:"chat_room_id,omitempty"`
	ChatAllowlistID string        `json:"chat_allowlist_id,omitempty"`
	Match           *models.Match `json:"match,omitempty"`
}

// Resolver determines whether a match already has its chat room and
// allowlist. It reads indexed creation events first and falls back to the
// registries' dynamic fields when the event window does not reach back far
// enough.
type Resolver struct {
	Ledger    ledger.Client
	Contracts config.Contracts
	PageSize  int
}

func NewResolver(l ledger.Client, c config.Contracts) *Resolver {
	return &Resolver{Ledger: l, Contracts: c, PageSize: config.EventPageSize}
}

// Resolve never retries; the first failing query is returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, matchID string) (*Resolution, error) {
	if matchID == "" {
		return nil, NewInvalidInputError("", "match id is required")
	}

	chatID, allowlistID, err := r.findChatRoom(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if chatID != "" {
		if allowlistID == "" {
			allowlistID, err = r.findAllowlist(ctx, chatID)
			if err != nil {
				return nil, err
			}
		}
		res := &Resolution{MatchID: matchID, ChatRoomID: chatID, ChatAllowlistID: allowlistID}
		if allowlistID != "" {
			res.Action = ActionNone
		} else {
			res.Action = ActionCreateAllowlist
		}
		log.Debug().Str("match_id", matchID).Str("chat_room_id", chatID).
			Str("action", string(res.Action)).Msg("chat room resolved")
		return res, nil
	}

	match, err := r.FetchMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsActive() {
		return nil, NewInactiveMatchError(matchID, match.Status)
	}
	return &Resolution{Action: ActionCreateChat, MatchID: matchID, Match: match}, nil
}

// FetchMatch reads the Match object and maps a missing object to NotFound.
func (r *Resolver) FetchMatch(ctx context.Context, matchID string) (*models.Match, error) {
	obj, err := r.Ledger.GetObject(ctx, matchID)
	if err != nil {
		if ledger.IsObjectNotFound(err) {
			e := NewNotFoundError(matchID, "match does not exist")
			e.Err = err
			return nil, e
		}
		return nil, err
	}
	return matchFromObject(matchID, obj)
}

func matchFromObject(matchID string, obj *ledger.Object) (*models.Match, error) {
	status, err := obj.Uint64Field("status")
	if err != nil {
		return nil, fmt.Errorf("decode match %s: %w", matchID, err)
	}
	if status > math.MaxUint8 {
		return nil, fmt.Errorf("decode match %s: status %d does not fit a u8", matchID, status)
	}
	m := &models.Match{
		ID:     matchID,
		UserA:  obj.StringField("user_a"),
		UserB:  obj.StringField("user_b"),
		Status: models.MatchStatus(status),
	}
	if m.UserA == "" || m.UserB == "" {
		return nil, fmt.Errorf("decode match %s: missing participant", matchID)
	}
	return m, nil
}

// findChatRoom returns the chat room for the match and, when the creation
// event already carries it, the allowlist created in the same call.
func (r *Resolver) findChatRoom(ctx context.Context, matchID string) (string, string, error) {
	page, err := r.Ledger.QueryEvents(ctx, ledger.EventQuery{
		MoveEventType: r.Contracts.TypeName(config.ChatCreatedEvent),
		Limit:         r.pageSize(),
		Descending:    true,
	})
	if err != nil {
		return "", "", err
	}
	want := models.NormalizeAddress(matchID)
	for _, ev := range page.Data {
		if models.NormalizeAddress(ev.StringField("match_id")) == want {
			return ev.StringField("chat_id"), ev.StringField("allowlist_id"), nil
		}
	}

	chatID, err := r.registryLookup(ctx, r.Contracts.MatchChatRegistryID, matchID)
	return chatID, "", err
}

func (r *Resolver) findAllowlist(ctx context.Context, chatID string) (string, error) {
	page, err := r.Ledger.QueryEvents(ctx, ledger.EventQuery{
		MoveEventType: r.Contracts.TypeName(config.AllowlistCreatedEvent),
		Limit:         r.pageSize(),
		Descending:    true,
	})
	if err != nil {
		return "", err
	}
	want := models.NormalizeAddress(chatID)
	for _, ev := range page.Data {
		if models.NormalizeAddress(ev.StringField("chat_id")) == want {
			return ev.StringField("allowlist_id"), nil
		}
	}

	return r.registryLookup(ctx, r.Contracts.AllowlistRegistryID, chatID)
}

// registryLookup reads the ID stored under key in a registry table. A
// missing field means "not created yet" and is not an error.
func (r *Resolver) registryLookup(ctx context.Context, registryID, key string) (string, error) {
	obj, err := r.Ledger.GetDynamicFieldObject(ctx, registryID, ledger.IDKey(key))
	if err != nil {
		if ledger.IsObjectNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return obj.StringField("value"), nil
}

func (r *Resolver) pageSize() int {
	if r.PageSize > 0 {
		return r.PageSize
	}
	return config.EventPageSize
}
