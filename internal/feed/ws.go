package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"bigsmall-bot/internal/signal"
)

// WS streams settled draws over WebSocket with exponential-backoff
// reconnection.
type WS struct {
	url     string
	metrics Observer
}

func NewWS(url string, metrics Observer) WS {
	return WS{url: url, metrics: metrics}
}

// Stream reads draws until the context is cancelled, reconnecting with
// exponential backoff after any connection failure.
func (w WS) Stream(ctx context.Context, out chan<- signal.Event) error {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := w.streamOnce(ctx, out); err != nil {
				log.Warn().Err(err).Dur("backoff", backoff).Msg("feed WebSocket failed, reconnecting")
				if w.metrics != nil {
					w.metrics.WSReconnectInc()
					w.metrics.FeedErrorInc()
				}

				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return ctx.Err()
				}

				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}
			backoff = time.Second
		}
	}
}

func (w WS) streamOnce(ctx context.Context, out chan<- signal.Event) error {
	log.Info().Str("url", w.url).Msg("establishing feed WebSocket connection")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	conn.SetReadLimit(64 * 1024)
	if err := conn.SetReadDeadline(time.Now().Add(90 * time.Second)); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})

	if err := conn.WriteJSON(map[string]any{"op": "subscribe", "ch": "draws"}); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	msgs := make(chan drawResult, 16)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			var r drawResult
			if err := conn.ReadJSON(&r); err != nil {
				readErr <- err
				return
			}
			// done unblocks a pending send once streamOnce has returned;
			// closing the connection only unblocks ReadJSON.
			select {
			case msgs <- r:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return fmt.Errorf("read failed: %w", err)
		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
		case r := <-msgs:
			ev, err := eventOf(r)
			if err != nil {
				log.Debug().Err(err).Str("issue", r.Issue).Msg("skipping malformed draw")
				continue
			}
			select {
			case out <- ev:
				if w.metrics != nil {
					w.metrics.EventReceivedInc()
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
