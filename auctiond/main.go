// Command auctiond serves the auction engine over vsock and publishes
// auction events and signed settlement receipts to NATS.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/cloudx-io/auctionhouse/engine"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("ERROR: Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	keyManager, err := NewKeyManager()
	if err != nil {
		log.Fatalf("ERROR: Failed to initialize key manager: %v", err)
	}
	log.Printf("INFO: KeyManager initialized")

	attester, signer := selectAttester(cfg.ReceiptSigner, keyManager)
	log.Printf("INFO: Settlement receipts signed by %s signer", signer)

	var (
		events      EventSink
		settlements SettlementSink
	)
	if cfg.NATSURL != "" {
		conn, sink, err := connectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("ERROR: %v", err)
		}
		defer conn.Close()
		events, settlements = conn, sink
		log.Printf("INFO: Connected to NATS at %s", cfg.NATSURL)
	} else {
		log.Printf("WARNING: AUCTIOND_NATS_URL not set, events are only logged")
	}

	publisher := NewPublisher(cfg.QueueSize, attester, events, settlements)
	publisherDone := make(chan struct{})
	go func() {
		defer close(publisherDone)
		publisher.Run(ctx)
	}()

	eng := engine.New(engine.WithNotifier(publisher))
	eng.StartExpirySweep(ctx, cfg.SweepInterval)
	log.Printf("INFO: Expiry sweep started (interval: %s)", cfg.SweepInterval)

	server := NewAuctionServer(cfg, eng, keyManager, signer)
	if err := server.Start(ctx); err != nil {
		log.Printf("ERROR: %v", err)
	}

	stop()
	<-publisherDone
}
