package models

// ChatReadyEvent is published to both participants once a mirror row has
// been written.
type ChatReadyEvent struct {
	MatchID         string   `json:"match_id"`
	ChatRoomID      string   `json:"chat_room_id"`
	ChatAllowlistID string   `json:"chat_allowlist_id,omitempty"`
	Participants    []string `json:"participants"`
}

// WalletNotification is a ChatReadyEvent addressed to one wallet.
type WalletNotification struct {
	Wallet string
	Event  ChatReadyEvent
}
