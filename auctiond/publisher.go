package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/cloudx-io/auctionhouse/auctionapi"
	"github.com/cloudx-io/auctionhouse/engine"
)

const (
	eventSubjectPrefix      = "auction.events."
	settlementSubjectPrefix = "auction.settlements."
)

// EventSink delivers best-effort real-time events. *nats.Conn satisfies it.
type EventSink interface {
	Publish(subject string, data []byte) error
}

// SettlementSink durably stores settlement messages.
type SettlementSink interface {
	PublishSettlement(ctx context.Context, subject string, data []byte) error
}

// Publisher is the engine's Notifier. Notify only enqueues; a single worker
// started by Run serializes, signs and publishes, so per-listing order is
// preserved end to end.
type Publisher struct {
	queue       chan engine.Event
	attester    Attester
	events      EventSink
	settlements SettlementSink

	publishTimeout time.Duration
	dropped        atomic.Int64
}

// NewPublisher creates a publisher with a queue of size events. Either sink
// may be nil, in which case that stream is only logged.
func NewPublisher(size int, attester Attester, events EventSink, settlements SettlementSink) *Publisher {
	return &Publisher{
		queue:          make(chan engine.Event, size),
		attester:       attester,
		events:         events,
		settlements:    settlements,
		publishTimeout: 5 * time.Second,
	}
}

// Notify implements engine.Notifier. It never blocks; when the queue is full
// the event is dropped and counted.
func (p *Publisher) Notify(ev engine.Event) {
	select {
	case p.queue <- ev:
	default:
		p.dropped.Add(1)
		log.Printf("ERROR: Event queue full, dropped %s event %s for listing %s", ev.Type, ev.ID, ev.ListingID)
	}
}

// Dropped returns the number of events lost to a full queue.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Run publishes queued events until ctx is cancelled, then drains what is
// already queued.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case ev := <-p.queue:
			p.handle(ctx, ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-p.queue:
					p.handle(context.Background(), ev)
				default:
					log.Printf("INFO: Event publisher stopped")
					return
				}
			}
		}
	}
}

func (p *Publisher) handle(ctx context.Context, ev engine.Event) {
	if err := p.publishEvent(ev); err != nil {
		log.Printf("WARNING: Failed to publish %s event for listing %s: %v", ev.Type, ev.ListingID, err)
	}

	if ev.Type != engine.EventAuctionEnded {
		return
	}
	if err := p.publishSettlement(ctx, ev); err != nil {
		log.Printf("ERROR: Failed to publish settlement for listing %s: %v", ev.ListingID, err)
	}
}

func (p *Publisher) publishEvent(ev engine.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := eventSubjectPrefix + ev.ListingID
	if p.events == nil {
		log.Printf("INFO: Event %s on %s (no event sink)", ev.Type, subject)
		return nil
	}
	return p.events.Publish(subject, data)
}

func (p *Publisher) publishSettlement(ctx context.Context, ev engine.Event) error {
	if ev.Outcome == nil || ev.Listing == nil {
		return fmt.Errorf("auction_ended event %s carries no outcome", ev.ID)
	}

	msg := auctionapi.SettlementMessage{
		ListingID: ev.ListingID,
		Outcome:   *ev.Outcome,
	}

	receipt, err := GenerateSettlementReceipt(p.attester, ev.Listing, *ev.Outcome)
	if err != nil {
		// Still publish the outcome; a missing receipt is visible to consumers
		log.Printf("ERROR: Settlement receipt for listing %s failed: %v", ev.ListingID, err)
	} else {
		msg.ReceiptBase64 = receipt.EncodeBase64()
		if msg.ReceiptGzip, err = receipt.CompressGzip(); err != nil {
			log.Printf("WARNING: Failed to compress receipt for listing %s: %v", ev.ListingID, err)
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement: %w", err)
	}

	subject := settlementSubjectPrefix + ev.ListingID
	if p.settlements == nil {
		log.Printf("INFO: Settlement for listing %s: status=%s (no settlement sink)", ev.ListingID, ev.Outcome.Status)
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()
	return p.settlements.PublishSettlement(pubCtx, subject, data)
}
