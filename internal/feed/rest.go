// Package feed ingests draw results from the upstream game API, either by
// polling its REST endpoint or by streaming over WebSocket, and converts
// them to events for the history window. Feed faults never reach the
// ensemble core; they are logged, counted and retried here.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"bigsmall-bot/internal/signal"
)

// Observer counts feed activity. A nil Observer disables instrumentation.
type Observer interface {
	EventReceivedInc()
	FeedErrorInc()
	WSReconnectInc()
}

// drawResult is one settled draw as reported by the upstream API.
type drawResult struct {
	Issue  string `json:"issue"`
	Number int    `json:"number"` // 0..9
	Ts     int64  `json:"ts"`     // unix milliseconds
}

type drawResponse struct {
	Code int          `json:"code"`
	Msg  string       `json:"msg"`
	Data []drawResult `json:"data"` // newest first
}

// eventOf converts an upstream draw into a history event.
func eventOf(r drawResult) (signal.Event, error) {
	if r.Number < 0 || r.Number > 9 {
		return signal.Event{}, fmt.Errorf("draw number out of range: %d", r.Number)
	}
	return signal.Event{
		Category:  signal.CategoryOf(r.Number),
		Magnitude: r.Number,
		Ts:        time.UnixMilli(r.Ts),
	}, nil
}

// Poller fetches the latest draws on a fixed interval and emits the ones it
// has not seen yet, oldest first so the history window stays ordered.
type Poller struct {
	url       string
	interval  time.Duration
	rest      *resty.Client
	metrics   Observer
	lastIssue string
}

func NewPoller(url string, interval, timeout time.Duration, metrics Observer) *Poller {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second)
	}
	return &Poller{url: url, interval: interval, rest: r, metrics: metrics}
}

// Run polls until the context is cancelled. Poll failures are logged and
// counted, then retried on the next tick.
func (p *Poller) Run(ctx context.Context, out chan<- signal.Event) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.pollOnce(ctx, out); err != nil {
				log.Warn().Err(err).Str("url", p.url).Msg("draw poll failed")
				if p.metrics != nil {
					p.metrics.FeedErrorInc()
				}
			}
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context, out chan<- signal.Event) error {
	httpResp, err := p.rest.R().
		SetContext(ctx).
		Get(p.url)
	if err != nil {
		return err
	}
	if httpResp.IsError() {
		return fmt.Errorf("feed: http %d", httpResp.StatusCode())
	}

	// Decode the body ourselves: resty's SetResult only fires on a JSON
	// content type, and an upstream that omits it must not look like an
	// empty draw list.
	var resp drawResponse
	if err := json.Unmarshal(httpResp.Body(), &resp); err != nil {
		return fmt.Errorf("feed: decode response: %w", err)
	}
	if resp.Code != 0 {
		return fmt.Errorf("feed: %d %s", resp.Code, resp.Msg)
	}

	fresh := p.unseen(resp.Data)
	// Emit oldest first so consumers see draws in order.
	for i := len(fresh) - 1; i >= 0; i-- {
		ev, err := eventOf(fresh[i])
		if err != nil {
			log.Debug().Err(err).Str("issue", fresh[i].Issue).Msg("skipping malformed draw")
			continue
		}
		select {
		case out <- ev:
			if p.metrics != nil {
				p.metrics.EventReceivedInc()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if len(fresh) > 0 {
		p.lastIssue = fresh[0].Issue
	}
	return nil
}

// unseen returns the newest-first prefix of results not yet emitted.
func (p *Poller) unseen(results []drawResult) []drawResult {
	for i, r := range results {
		if r.Issue == p.lastIssue {
			return results[:i]
		}
	}
	return results
}
