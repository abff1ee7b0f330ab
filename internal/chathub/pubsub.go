package chathub

import (
	"context"

	"github.com/rs/zerolog/log"
)

// StartPubSubListener підписується на джерело і передає кожну подію в хаб,
// доки ctx не завершиться або підписка не закриється.
func (m *ManagerService) StartPubSubListener(ctx context.Context) error {
	ch, err := m.Source.SubscribeAllChatReady(ctx)
	if err != nil {
		return err
	}

	go func() {
		for n := range ch {
			select {
			case m.PubSubCh <- n:
			case <-ctx.Done():
				return
			}
		}
		log.Info().Msg("chat ready subscription closed")
	}()
	return nil
}
