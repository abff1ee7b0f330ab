package models

import "time"

// ChatMirror is the relational copy of the on-chain chat identifiers for a
// match. It is the only record this service owns; the ledger stays the
// source of truth.
type ChatMirror struct {
	// ChatRoomID is the on-chain ChatRoom object id.
	ChatRoomID string `gorm:"primaryKey;type:varchar(66)" json:"chat_room_id"`
	// ChatAllowlistID is empty until the allowlist has been created.
	ChatAllowlistID string `gorm:"type:varchar(66);index" json:"chat_allowlist_id"`
	// MatchID is the Match object the chat room was created from.
	MatchID string `gorm:"type:varchar(66);index" json:"match_id"`
	// Participant1 and Participant2 hold the local user ids of the two
	// wallets, or the wallet address when no profile exists.
	Participant1 string `gorm:"not null" json:"participant1"`
	Participant2 string `gorm:"not null" json:"participant2"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Complete reports whether both the chat room and its allowlist exist.
func (m *ChatMirror) Complete() bool {
	return m != nil && m.ChatRoomID != "" && m.ChatAllowlistID != ""
}
