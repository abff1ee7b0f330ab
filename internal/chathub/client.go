package chathub

import "matchlink/backend/internal/models"

// Client is one live connection that wants chat-ready notifications for a
// wallet. A wallet may hold several clients at once (tabs, devices).
type Client interface {
	// GetWallet returns the normalized wallet address the client listens for.
	GetWallet() string

	// GetSendChannel returns the channel the hub delivers events on.
	GetSendChannel() chan<- models.ChatReadyEvent

	// Run starts the client's pumps.
	Run()
	// Close stops delivery. The hub calls it exactly once, on unregister.
	Close()
}
