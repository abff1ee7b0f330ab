package chatlink

import (
	"context"
	"errors"
	"fmt"

	"matchlink/backend/internal/config"
	"matchlink/backend/internal/ledger"
	"matchlink/backend/internal/models"
	"matchlink/backend/internal/storage"

	"github.com/rs/zerolog/log"
)

// Service runs the resolve, build, reconcile and persist steps. Every call
// is sequential; concurrent calls for one match are not deduplicated here
// and the contract rejects a second chat creation with an abort.
type Service struct {
	Ledger     ledger.Client
	Storage    storage.Storage
	Contracts  config.Contracts
	Resolver   *Resolver
	Reconciler *Reconciler
}

func NewService(l ledger.Client, s storage.Storage, c config.Contracts) *Service {
	return &Service{
		Ledger:     l,
		Storage:    s,
		Contracts:  c,
		Resolver:   NewResolver(l, c),
		Reconciler: NewReconciler(l, c),
	}
}

type PrepareRequest struct {
	MatchID      string `json:"match_id"`
	Caller       string `json:"-"`
	ProfileID    string `json:"profile_id"`
	PolicyID     string `json:"policy_id"`
	EncryptedKey string `json:"encrypted_key"`
}

// Plan is the resolution plus the transaction to sign, if any.
type Plan struct {
	Resolution  *Resolution  `json:"resolution"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// ReconcileRequest files a confirmed transaction under a match. Caller must
// be one of the match's participants unless Operator is set by a trusted
// entry point such as the admin CLI.
type ReconcileRequest struct {
	MatchID    string `json:"match_id"`
	Digest     string `json:"digest"`
	Action     Action `json:"action"`
	ChatRoomID string `json:"chat_room_id,omitempty"`
	Caller     string `json:"-"`
	Operator   bool   `json:"-"`
}

type SubmitRequest struct {
	MatchID    string   `json:"match_id"`
	Action     Action   `json:"action"`
	ChatRoomID string   `json:"chat_room_id,omitempty"`
	TxBytes    string   `json:"tx_bytes"`
	Signatures []string `json:"signatures"`
	Caller     string   `json:"-"`
}

// Resolve answers from a complete mirror row when one exists and asks the
// ledger otherwise. A failing mirror read falls through to the ledger.
func (s *Service) Resolve(ctx context.Context, matchID string) (*Resolution, error) {
	if matchID == "" {
		return nil, NewInvalidInputError("", "match id is required")
	}
	row, err := s.Storage.GetChatMirrorByMatch(ctx, matchID)
	if err != nil {
		log.Warn().Err(err).Str("match_id", matchID).Msg("mirror lookup failed, asking the ledger")
	} else if row.Complete() {
		return &Resolution{
			Action:          ActionNone,
			MatchID:         matchID,
			ChatRoomID:      row.ChatRoomID,
			ChatAllowlistID: row.ChatAllowlistID,
		}, nil
	}
	return s.Resolver.Resolve(ctx, matchID)
}

// Prepare resolves the match, checks the caller is one of its participants
// and builds the follow-up transaction.
func (s *Service) Prepare(ctx context.Context, req PrepareRequest) (*Plan, error) {
	res, err := s.Resolve(ctx, req.MatchID)
	if err != nil {
		return nil, err
	}

	match := res.Match
	if match == nil {
		if match, err = s.Resolver.FetchMatch(ctx, req.MatchID); err != nil {
			return nil, err
		}
	}
	if !match.HasParticipant(req.Caller) {
		return nil, NewUnauthorizedError(req.MatchID, req.Caller)
	}

	plan := &Plan{Resolution: res}
	if res.Action == ActionNone {
		return plan, nil
	}

	tx, err := Build(res.Action, BuildInput{
		MatchID:      req.MatchID,
		ChatRoomID:   res.ChatRoomID,
		ProfileID:    req.ProfileID,
		PolicyID:     req.PolicyID,
		EncryptedKey: req.EncryptedKey,
	}, s.Contracts)
	if err != nil {
		return nil, err
	}
	plan.Transaction = tx

	log.Info().Str("match_id", req.MatchID).Str("action", string(res.Action)).
		Str("target", tx.Target).Msg("transaction prepared")
	return plan, nil
}

// Reconcile reads a confirmed transaction and writes the mirror row.
func (s *Service) Reconcile(ctx context.Context, req ReconcileRequest) (*models.ChatMirror, error) {
	match, err := s.authorize(ctx, req.MatchID, req.Caller, req.Operator)
	if err != nil {
		return nil, err
	}
	expect, err := s.expectation(ctx, req.MatchID, req.Action, req.ChatRoomID)
	if err != nil {
		return nil, err
	}
	result, err := s.Reconciler.Reconcile(ctx, req.Digest, expect)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, match, result)
}

// Submit relays a wallet-signed transaction and reconciles its effects.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.ChatMirror, error) {
	if req.TxBytes == "" || len(req.Signatures) == 0 {
		return nil, NewInvalidInputError(req.MatchID, "signed transaction bytes and signatures are required")
	}
	match, err := s.authorize(ctx, req.MatchID, req.Caller, false)
	if err != nil {
		return nil, err
	}
	expect, err := s.expectation(ctx, req.MatchID, req.Action, req.ChatRoomID)
	if err != nil {
		return nil, err
	}
	block, err := s.Ledger.Execute(ctx, req.TxBytes, req.Signatures)
	if err != nil {
		return nil, err
	}
	log.Info().Str("match_id", req.MatchID).Str("digest", block.Digest).Msg("transaction executed")

	result, err := s.Reconciler.ReconcileBlock(block, expect)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, match, result)
}

// Simulate dev-inspects a transaction and reports a contract abort as an
// error.
func (s *Service) Simulate(ctx context.Context, sender, txBytes string) (*ledger.DevInspectResult, error) {
	if sender == "" || txBytes == "" {
		return nil, NewInvalidInputError("", "sender and transaction bytes are required")
	}
	res, err := s.Ledger.DevInspect(ctx, sender, txBytes)
	if err != nil {
		return nil, err
	}
	if failure := res.Failure(); failure != "" {
		if abort, ok := TranslateAbort(failure); ok {
			return res, abort
		}
		e := newError(KindContractAbort, MsgContractAbort, "", "simulation failed")
		e.Err = errors.New(failure)
		return res, e
	}
	return res, nil
}

// Mirror returns the stored row for a chat room.
func (s *Service) Mirror(ctx context.Context, chatRoomID string) (*models.ChatMirror, error) {
	row, err := s.Storage.GetChatMirror(ctx, chatRoomID)
	if errors.Is(err, storage.ErrNotFound) {
		e := NewNotFoundError("", fmt.Sprintf("chat room %s is not mirrored", chatRoomID))
		e.Err = err
		return nil, e
	}
	return row, err
}

// History lists the most recent transactions that changed objectID, such
// as a match or chat room. It is read-only and used for support tooling.
func (s *Service) History(ctx context.Context, objectID string, limit int) ([]ledger.TransactionBlock, error) {
	if objectID == "" {
		return nil, NewInvalidInputError("", "object id is required")
	}
	if limit <= 0 || limit > config.EventPageSize {
		limit = config.EventPageSize
	}
	page, err := s.Ledger.QueryTransactionBlocks(ctx, ledger.TransactionFilter{ChangedObject: objectID}, limit)
	if err != nil {
		return nil, err
	}
	return page.Data, nil
}

// authorize fetches the match and checks caller takes part in it.
func (s *Service) authorize(ctx context.Context, matchID, caller string, operator bool) (*models.Match, error) {
	if matchID == "" {
		return nil, NewInvalidInputError("", "match id is required")
	}
	match, err := s.Resolver.FetchMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !operator && !match.HasParticipant(caller) {
		return nil, NewUnauthorizedError(matchID, caller)
	}
	return match, nil
}

// expectation pins what the transaction must have created. An allowlist is
// only accepted for the chat room the ledger links to the match.
func (s *Service) expectation(ctx context.Context, matchID string, action Action, chatRoomID string) (Expectation, error) {
	switch action {
	case ActionCreateChat:
		return Expectation{Action: action, MatchID: matchID}, nil
	case ActionCreateAllowlist:
		linked, _, err := s.Resolver.findChatRoom(ctx, matchID)
		if err != nil {
			return Expectation{}, err
		}
		if linked == "" {
			return Expectation{}, NewNotFoundError(matchID, "match has no chat room yet")
		}
		if chatRoomID != "" && models.NormalizeAddress(chatRoomID) != models.NormalizeAddress(linked) {
			return Expectation{}, NewInvalidInputError(matchID, fmt.Sprintf("chat room %s does not belong to this match", chatRoomID))
		}
		return Expectation{Action: action, MatchID: matchID, ChatRoomID: linked}, nil
	}
	return Expectation{}, NewInvalidInputError(matchID, fmt.Sprintf("action %q creates nothing", action))
}

// persist writes the mirror row for a reconciled transaction. The row is a
// pure function of the match and the result, so replays write the same
// content.
func (s *Service) persist(ctx context.Context, match *models.Match, result *ReconcileResult) (*models.ChatMirror, error) {
	p1, err := s.participantID(ctx, match.UserA)
	if err != nil {
		return nil, err
	}
	p2, err := s.participantID(ctx, match.UserB)
	if err != nil {
		return nil, err
	}

	row := &models.ChatMirror{
		ChatRoomID:      result.ChatRoomID,
		ChatAllowlistID: result.ChatAllowlistID,
		MatchID:         match.ID,
		Participant1:    p1,
		Participant2:    p2,
	}
	if err := s.Storage.UpsertChatMirror(ctx, row); err != nil {
		return nil, fmt.Errorf("persist chat mirror %s: %w", row.ChatRoomID, err)
	}

	event := models.ChatReadyEvent{
		MatchID:         match.ID,
		ChatRoomID:      row.ChatRoomID,
		ChatAllowlistID: row.ChatAllowlistID,
		Participants:    []string{p1, p2},
	}
	if err := s.Storage.PublishChatReady(ctx, []string{match.UserA, match.UserB}, event); err != nil {
		log.Warn().Err(err).Str("chat_room_id", row.ChatRoomID).Msg("chat ready notification not delivered")
	}
	return row, nil
}

// participantID maps a wallet to its profile id, or keeps the address when
// no profile is bound to it.
func (s *Service) participantID(ctx context.Context, wallet string) (string, error) {
	user, err := s.Storage.GetUserByWallet(ctx, wallet)
	if err != nil {
		return "", fmt.Errorf("look up user for %s: %w", wallet, err)
	}
	if user == nil {
		return models.NormalizeAddress(wallet), nil
	}
	return user.ID, nil
}
