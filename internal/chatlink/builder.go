package chatlink

import (
	"encoding/hex"
	"fmt"
	"strings"

	"matchlink/backend/internal/config"
)

type ArgumentKind string

const (
	ArgObject ArgumentKind = "object"
	ArgPure   ArgumentKind = "pure"
)

// Argument is one positional argument of a Move call. Objects are passed by
// id; pure values carry their Move type and a 0x-hex encoding.
type Argument struct {
	Name     string       `json:"name"`
	Kind     ArgumentKind `json:"kind"`
	ObjectID string       `json:"objectId,omitempty"`
	Type     string       `json:"type,omitempty"`
	Value    string       `json:"value,omitempty"`
}

// Transaction is an unsigned single-call transaction for the wallet to
// sign. Argument order is the contract's and must not be changed.
type Transaction struct {
	Action        Action     `json:"action"`
	Target        string     `json:"target"`
	TypeArguments []string   `json:"typeArguments"`
	Arguments     []Argument `json:"arguments"`
}

// BuildInput carries the ids a transaction may need.
type BuildInput struct {
	MatchID      string `json:"match_id"`
	ChatRoomID   string `json:"chat_room_id,omitempty"`
	ProfileID    string `json:"profile_id,omitempty"`
	PolicyID     string `json:"policy_id,omitempty"`
	EncryptedKey string `json:"encrypted_key,omitempty"`
}

func object(name, id string) Argument {
	return Argument{Name: name, Kind: ArgObject, ObjectID: id}
}

func bytesArg(name, value string) Argument {
	return Argument{Name: name, Kind: ArgPure, Type: "vector<u8>", Value: value}
}

// Build maps an action to its transaction. It is pure: no network, and the
// same inputs always give the same output. ActionNone yields nil.
func Build(action Action, in BuildInput, c config.Contracts) (*Transaction, error) {
	switch action {
	case ActionNone:
		return nil, nil

	case ActionCreateChat:
		if err := requireIDs(in.MatchID, namedID{"match_id", in.MatchID}, namedID{"profile_id", in.ProfileID}); err != nil {
			return nil, err
		}
		policy, err := hexValue("policy_id", in.PolicyID)
		if err != nil {
			return nil, NewInvalidInputError(in.MatchID, err.Error())
		}
		key, err := hexValue("encrypted_key", in.EncryptedKey)
		if err != nil {
			return nil, NewInvalidInputError(in.MatchID, err.Error())
		}
		return &Transaction{
			Action:        action,
			Target:        c.Target(config.IntegrationModule, config.CreateChatFromMatchFunc),
			TypeArguments: []string{},
			Arguments: []Argument{
				object("usage_tracker", c.UsageTrackerID),
				object("match_chat_registry", c.MatchChatRegistryID),
				object("chat_registry", c.ChatRegistryID),
				object("allowlist_registry", c.AllowlistRegistryID),
				object("profile", in.ProfileID),
				object("match", in.MatchID),
				bytesArg("policy_id", policy),
				bytesArg("encrypted_key", key),
				object("clock", c.ClockID),
			},
		}, nil

	case ActionCreateAllowlist:
		if err := requireIDs(in.MatchID, namedID{"chat_room_id", in.ChatRoomID}); err != nil {
			return nil, err
		}
		return &Transaction{
			Action:        action,
			Target:        c.Target(config.SealPoliciesModule, config.CreateChatAllowlistFunc),
			TypeArguments: []string{},
			Arguments: []Argument{
				object("allowlist_registry", c.AllowlistRegistryID),
				object("chat_room", in.ChatRoomID),
				object("clock", c.ClockID),
			},
		}, nil
	}
	return nil, NewInvalidInputError(in.MatchID, fmt.Sprintf("unknown action %q", action))
}

type namedID struct {
	name string
	id   string
}

func requireIDs(matchID string, ids ...namedID) error {
	for _, n := range ids {
		if !strings.HasPrefix(n.id, "0x") || len(n.id) < 3 {
			return NewInvalidInputError(matchID, fmt.Sprintf("%s must be a 0x-prefixed object id", n.name))
		}
	}
	return nil
}

// hexValue validates a 0x-hex byte string and returns it lowercased.
func hexValue(name, v string) (string, error) {
	raw := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(v)), "0x")
	if raw == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", fmt.Errorf("%s is not valid hex: %w", name, err)
	}
	return "0x" + raw, nil
}
