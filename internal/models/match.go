package models

import (
	"fmt"
	"strings"

	"matchlink/backend/internal/config"
)

// MatchStatus mirrors the status byte stored on the Match object.
type MatchStatus uint8

const (
	MatchPending MatchStatus = config.MatchStatusPending
	MatchActive  MatchStatus = config.MatchStatusActive
	MatchBlocked MatchStatus = config.MatchStatusBlocked
)

func (s MatchStatus) String() string {
	switch s {
	case MatchPending:
		return "pending"
	case MatchActive:
		return "active"
	case MatchBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Match is a read-only copy of the on-chain match between two wallets.
type Match struct {
	ID     string      `json:"id"`
	UserA  string      `json:"user_a"`
	UserB  string      `json:"user_b"`
	Status MatchStatus `json:"status"`
}

func (m Match) IsActive() bool {
	return m.Status == MatchActive
}

// HasParticipant reports whether addr is one of the two matched wallets.
func (m Match) HasParticipant(addr string) bool {
	a := NormalizeAddress(addr)
	if a == "" {
		return false
	}
	return a == NormalizeAddress(m.UserA) || a == NormalizeAddress(m.UserB)
}

// NormalizeAddress lowercases a wallet address for comparison.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
