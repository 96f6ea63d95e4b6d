package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/mdlayher/vsock"

	"github.com/cloudx-io/auctionhouse/engine"
)

const requestReadTimeout = 30 * time.Second

// AuctionServer answers one JSON request per vsock connection.
type AuctionServer struct {
	port       uint32
	maxWorkers int

	engine     *engine.Engine
	keyManager *KeyManager
	signer     string
}

func NewAuctionServer(cfg *Config, eng *engine.Engine, keyManager *KeyManager, signer string) *AuctionServer {
	return &AuctionServer{
		port:       cfg.VsockPort,
		maxWorkers: cfg.MaxWorkers,
		engine:     eng,
		keyManager: keyManager,
		signer:     signer,
	}
}

func (s *AuctionServer) Start(ctx context.Context) error {
	listener, err := vsock.Listen(s.port, nil)
	if err != nil {
		return fmt.Errorf("failed to create vsock listener: %w", err)
	}
	log.Printf("INFO: Auction server listening on vsock port %d", s.port)

	return s.Serve(ctx, listener)
}

// Serve accepts connections until ctx is cancelled. At most maxWorkers
// connections are handled at once; extra connections are closed immediately.
func (s *AuctionServer) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			log.Printf("ERROR: Failed to close listener: %v", err)
		}
	}()

	semaphore := make(chan struct{}, s.maxWorkers)
	log.Printf("INFO: Worker pool initialized with %d max concurrent workers", s.maxWorkers)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("INFO: Auction server stopped")
				return nil
			}
			log.Printf("ERROR: Failed to accept vsock connection: %v", err)
			continue
		}

		// Acquire worker slot - immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }() // Release worker slot
				s.handleConnection(c)
			}(conn)
		default:
			log.Printf("INFO: No workers available, rejecting connection (pool full)")
			if err := conn.Close(); err != nil {
				log.Printf("ERROR: Failed to close rejected connection: %v", err)
			}
		}
	}
}

func (s *AuctionServer) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic recovered in handleConnection: %v", r)
		}
		if err := conn.Close(); err != nil {
			log.Printf("ERROR: Failed to close connection: %v", err)
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(requestReadTimeout))

	var payload json.RawMessage
	if err := json.NewDecoder(conn).Decode(&payload); err != nil {
		log.Printf("ERROR: Failed to read request: %v", err)
		return
	}

	reqType, response := s.dispatch(payload)

	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(response); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	} else {
		log.Printf("INFO: Successfully sent response for %s", reqType)
	}
}
