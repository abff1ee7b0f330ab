// Package chathub розсилає сповіщення chat-ready гаманцям, підключеним до
// цього процесу.
package chathub

import (
	"context"
	"sync"

	"matchlink/backend/internal/models"

	"github.com/rs/zerolog/log"
)

// ReadySource постачає події chat-ready для всіх гаманців.
type ReadySource interface {
	SubscribeAllChatReady(ctx context.Context) (<-chan models.WalletNotification, error)
}

// ManagerService володіє реєстром клієнтів. Змінює його лише Run.
type ManagerService struct {
	Clients map[string]map[Client]struct{}
	mu      sync.RWMutex

	RegisterCh   chan Client
	UnregisterCh chan Client
	PubSubCh     chan models.WalletNotification

	Source ReadySource
	done   chan struct{}
}

func NewManagerService(src ReadySource) *ManagerService {
	return &ManagerService{
		Clients:      make(map[string]map[Client]struct{}),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		PubSubCh:     make(chan models.WalletNotification, 64),
		Source:       src,
		done:         make(chan struct{}),
	}
}

// Run обробляє реєстрації та доставку до завершення ctx, після чого закриває
// всіх клієнтів, що лишилися.
func (m *ManagerService) Run(ctx context.Context) error {
	defer close(m.done)

	if m.Source != nil {
		if err := m.StartPubSubListener(ctx); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return nil
		case c := <-m.RegisterCh:
			m.register(c)
		case c := <-m.UnregisterCh:
			m.unregister(c)
		case n := <-m.PubSubCh:
			m.dispatch(n)
		}
	}
}

// Register додає c. Повертає false, якщо хаб уже зупинено і c не додано.
func (m *ManagerService) Register(c Client) bool {
	select {
	case m.RegisterCh <- c:
		return true
	case <-m.done:
		return false
	}
}

// Unregister видаляє c, якщо хаб ще працює.
func (m *ManagerService) Unregister(c Client) {
	select {
	case m.UnregisterCh <- c:
	case <-m.done:
	}
}

// Connected повертає кількість клієнтів гаманця.
func (m *ManagerService) Connected(wallet string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Clients[models.NormalizeAddress(wallet)])
}

func (m *ManagerService) register(c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wallet := c.GetWallet()
	set, ok := m.Clients[wallet]
	if !ok {
		set = make(map[Client]struct{})
		m.Clients[wallet] = set
	}
	set[c] = struct{}{}
	log.Debug().Str("wallet", wallet).Int("clients", len(set)).Msg("client registered")
}

func (m *ManagerService) unregister(c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(c)
}

func (m *ManagerService) removeLocked(c Client) {
	wallet := c.GetWallet()
	set, ok := m.Clients[wallet]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(m.Clients, wallet)
	}
	c.Close()
	log.Debug().Str("wallet", wallet).Msg("client unregistered")
}

// dispatch ніколи не блокується: клієнта з повним буфером відключаємо.
func (m *ManagerService) dispatch(n models.WalletNotification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for c := range m.Clients[models.NormalizeAddress(n.Wallet)] {
		select {
		case c.GetSendChannel() <- n.Event:
		default:
			log.Warn().Str("wallet", n.Wallet).Msg("client too slow, dropping it")
			m.removeLocked(c)
		}
	}
}

func (m *ManagerService) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, set := range m.Clients {
		for c := range set {
			m.removeLocked(c)
		}
	}
}
