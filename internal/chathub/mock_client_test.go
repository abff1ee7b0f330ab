package chathub_test

import (
	"context"
	"sync/atomic"

	"matchlink/backend/internal/models"
)

type MockClient struct {
	wallet      string
	RecvChannel chan models.ChatReadyEvent
	closed      atomic.Int32
}

func newMockClient(wallet string, buffer int) *MockClient {
	return &MockClient{
		wallet:      wallet,
		RecvChannel: make(chan models.ChatReadyEvent, buffer),
	}
}

func (c *MockClient) GetWallet() string {
	return c.wallet
}

func (c *MockClient) GetSendChannel() chan<- models.ChatReadyEvent {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.closed.Add(1)
}

// fakeSource hands the hub a channel the test controls.
type fakeSource struct {
	ch  chan models.WalletNotification
	err error
}

func (f *fakeSource) SubscribeAllChatReady(ctx context.Context) (<-chan models.WalletNotification, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ch, nil
}
