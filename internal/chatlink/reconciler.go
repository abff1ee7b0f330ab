package chatlink

import (
	"context"
	"fmt"

	"matchlink/backend/internal/config"
	"matchlink/backend/internal/ledger"
	"matchlink/backend/internal/models"

	"github.com/rs/zerolog/log"
)

// Expectation says what a submitted transaction was meant to create.
type Expectation struct {
	Action Action
	// MatchID is required for ActionCreateChat. The transaction's creation
	// event must name it.
	MatchID string
	// ChatRoomID is required for ActionCreateAllowlist, where the chat room
	// predates the transaction.
	ChatRoomID string
}

type ReconcileResult struct {
	Digest          string `json:"digest"`
	ChatRoomID      string `json:"chat_room_id"`
	ChatAllowlistID string `json:"chat_allowlist_id,omitempty"`
}

// Reconciler extracts the created chat objects from a transaction. Objects
// count only when their type is the configured package's and a creation
// event ties them to the expected match or chat room. It never retries: a
// digest that lacks the expected objects will not gain them.
type Reconciler struct {
	Ledger    ledger.Client
	Contracts config.Contracts
}

func NewReconciler(l ledger.Client, c config.Contracts) *Reconciler {
	return &Reconciler{Ledger: l, Contracts: c}
}

func (r *Reconciler) Reconcile(ctx context.Context, digest string, expect Expectation) (*ReconcileResult, error) {
	if digest == "" {
		return nil, NewInvalidInputError("", "transaction digest is required")
	}
	block, err := r.Ledger.GetTransactionBlock(ctx, digest)
	if err != nil {
		return nil, err
	}
	return r.ReconcileBlock(block, expect)
}

// ReconcileBlock works on an already fetched block, such as the one returned
// by executing a transaction.
func (r *Reconciler) ReconcileBlock(block *ledger.TransactionBlock, expect Expectation) (*ReconcileResult, error) {
	if block.Effects != nil && block.Effects.Status.Failed() {
		if abort, ok := TranslateAbort(block.Effects.Status.Error); ok {
			return nil, abort
		}
		e := newError(KindContractAbort, MsgContractAbort, "", "transaction failed on chain")
		e.Err = fmt.Errorf("%s: %s", block.Digest, block.Effects.Status.Error)
		return nil, e
	}

	rooms := createdIDs(block, r.Contracts.TypeName(config.ChatRoomType))
	allowlists := createdIDs(block, r.Contracts.TypeName(config.ChatAllowlistType))
	result := &ReconcileResult{Digest: block.Digest}

	switch expect.Action {
	case ActionCreateChat:
		if expect.MatchID == "" {
			return nil, NewInvalidInputError("", "match id is required to reconcile a chat room")
		}
		ev, ok := r.chatCreated(block, expect.MatchID)
		if !ok {
			return nil, NewNotFoundError(expect.MatchID, fmt.Sprintf("transaction %s created no chat room for this match", block.Digest))
		}
		chatID := ev.StringField("chat_id")
		if !rooms[models.NormalizeAddress(chatID)] {
			return nil, NewNotFoundError(expect.MatchID, fmt.Sprintf("transaction %s did not create %s %s", block.Digest, config.ChatRoomType, chatID))
		}
		result.ChatRoomID = chatID
		if id := ev.StringField("allowlist_id"); id != "" && allowlists[models.NormalizeAddress(id)] {
			result.ChatAllowlistID = id
		} else {
			result.ChatAllowlistID = r.allowlistCreated(block, chatID, allowlists)
		}

	case ActionCreateAllowlist:
		if expect.ChatRoomID == "" {
			return nil, NewInvalidInputError("", "chat room id is required to reconcile an allowlist")
		}
		id := r.allowlistCreated(block, expect.ChatRoomID, allowlists)
		if id == "" {
			return nil, NewNotFoundError(expect.MatchID, fmt.Sprintf("transaction %s created no %s for chat room %s", block.Digest, config.ChatAllowlistType, expect.ChatRoomID))
		}
		result.ChatRoomID = expect.ChatRoomID
		result.ChatAllowlistID = id

	default:
		return nil, NewInvalidInputError("", fmt.Sprintf("nothing to reconcile for action %q", expect.Action))
	}

	log.Info().Str("digest", block.Digest).Str("chat_room_id", result.ChatRoomID).
		Str("chat_allowlist_id", result.ChatAllowlistID).Msg("transaction reconciled")
	return result, nil
}

func (r *Reconciler) chatCreated(block *ledger.TransactionBlock, matchID string) (ledger.Event, bool) {
	want := models.NormalizeAddress(matchID)
	events := block.EventsOfType(r.Contracts.TypeName(config.ChatCreatedEvent))
	for _, ev := range events {
		if models.NormalizeAddress(ev.StringField("match_id")) == want {
			return ev, true
		}
	}
	if len(events) > 0 {
		log.Warn().Str("digest", block.Digest).Str("match_id", matchID).
			Msg("transaction created a chat room for another match")
	}
	return ledger.Event{}, false
}

// allowlistCreated returns the allowlist this block created for chatID, or "".
func (r *Reconciler) allowlistCreated(block *ledger.TransactionBlock, chatID string, created map[string]bool) string {
	want := models.NormalizeAddress(chatID)
	for _, ev := range block.EventsOfType(r.Contracts.TypeName(config.AllowlistCreatedEvent)) {
		id := ev.StringField("allowlist_id")
		if models.NormalizeAddress(ev.StringField("chat_id")) == want && created[models.NormalizeAddress(id)] {
			return id
		}
	}
	return ""
}

func createdIDs(block *ledger.TransactionBlock, objectType string) map[string]bool {
	ids := make(map[string]bool)
	for _, ch := range block.CreatedOfType(objectType) {
		ids[models.NormalizeAddress(ch.ObjectID)] = true
	}
	return ids
}
