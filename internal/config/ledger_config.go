package config

import "time"

const (
	// Ledger queries
	EventPageSize     = 50
	DefaultRPCTimeout = 15 * time.Second
	ClockObjectID     = "0x6"

	// Modules and entry points
	IntegrationModule       = "integration"
	SealPoliciesModule      = "seal_policies"
	ChatModule              = "chat"
	CreateChatFromMatchFunc = "create_chat_from_match_entry"
	CreateChatAllowlistFunc = "create_chat_allowlist_shared"

	// Event and object type names, relative to the package id
	ChatCreatedEvent      = IntegrationModule + "::ChatCreatedFromMatch"
	AllowlistCreatedEvent = SealPoliciesModule + "::ChatAllowlistCreated"
	ChatRoomType          = ChatModule + "::ChatRoom"
	ChatAllowlistType     = SealPoliciesModule + "::ChatAllowlist"

	// Match status values as stored by the contract
	MatchStatusPending = 0
	MatchStatusActive  = 1
	MatchStatusBlocked = 3

	// Abort codes raised by the integration and seal_policies modules
	AbortNotParticipant = 1
	AbortChatExists     = 6
	AbortMatchInactive  = 7
)
