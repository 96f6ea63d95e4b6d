package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const settlementStream = "AUCTION_SETTLEMENTS"

// jetStreamSink publishes settlements to JetStream and waits for the server ack.
type jetStreamSink struct {
	js jetstream.JetStream
}

func (s *jetStreamSink) PublishSettlement(ctx context.Context, subject string, data []byte) error {
	ack, err := s.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish to JetStream: %w", err)
	}

	log.Printf("INFO: Published settlement to %s, seq=%d", subject, ack.Sequence)
	return nil
}

// connectNATS opens the NATS connection and ensures the settlement stream exists.
func connectNATS(url string) (*nats.Conn, SettlementSink, error) {
	conn, err := nats.Connect(url,
		nats.Name("auctiond"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("WARNING: NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Printf("INFO: NATS reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        settlementStream,
		Description: "Settlement outcomes and receipts of ended auctions",
		Subjects:    []string{settlementSubjectPrefix + "*"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Replicas:    1,
	})
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to create/update stream: %w", err)
	}
	log.Printf("INFO: JetStream stream %s ready", settlementStream)

	return conn, &jetStreamSink{js: js}, nil
}
