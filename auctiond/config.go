package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	SignerLocal = "local"
	SignerNitro = "nitro"
)

// Config is read from the environment. A .env file in the working directory
// (or the file named by AUCTIOND_ENV_FILE) is loaded first; variables already
// set in the environment win.
type Config struct {
	VsockPort     uint32
	MaxWorkers    int
	SweepInterval time.Duration
	NATSURL       string
	ReceiptSigner string
	QueueSize     int
}

func LoadConfig() (*Config, error) {
	envFile := getEnv("AUCTIOND_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	} else {
		log.Printf("INFO: Loaded environment from %s", envFile)
	}

	port, err := getRequiredEnvInt("AUCTIOND_VSOCK_PORT")
	if err != nil {
		return nil, fmt.Errorf("failed to get vsock port config: %w", err)
	}
	if port <= 0 || int64(port) > math.MaxUint32 {
		return nil, fmt.Errorf("invalid value for AUCTIOND_VSOCK_PORT: %d (must be between 1 and %d)", port, uint32(math.MaxUint32))
	}

	maxWorkers, err := getRequiredEnvInt("AUCTIOND_MAX_WORKERS")
	if err != nil {
		return nil, fmt.Errorf("failed to get max workers config: %w", err)
	}
	if maxWorkers <= 0 {
		return nil, fmt.Errorf("invalid value for AUCTIOND_MAX_WORKERS: %d (must be positive)", maxWorkers)
	}

	sweepInterval, err := getEnvDuration("AUCTIOND_SWEEP_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}

	queueSize, err := getEnvInt("AUCTIOND_EVENT_QUEUE_SIZE", 1024)
	if err != nil {
		return nil, err
	}
	if queueSize <= 0 {
		return nil, fmt.Errorf("invalid value for AUCTIOND_EVENT_QUEUE_SIZE: %d (must be positive)", queueSize)
	}

	signer := getEnv("AUCTIOND_RECEIPT_SIGNER", SignerLocal)
	if signer != SignerLocal && signer != SignerNitro {
		return nil, fmt.Errorf("invalid value for AUCTIOND_RECEIPT_SIGNER: %s (must be %s or %s)", signer, SignerLocal, SignerNitro)
	}

	return &Config{
		VsockPort:     uint32(port),
		MaxWorkers:    maxWorkers,
		SweepInterval: sweepInterval,
		NATSURL:       os.Getenv("AUCTIOND_NATS_URL"),
		ReceiptSigner: signer,
		QueueSize:     queueSize,
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Helper function for required environment variable parsing
func getRequiredEnvInt(key string) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, fmt.Errorf("required environment variable %s is not set", key)
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %s (must be a valid integer)", key, value)
	}

	log.Printf("INFO: Using %s=%d from environment", key, intValue)
	return intValue, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	if os.Getenv(key) == "" {
		return fallback, nil
	}
	return getRequiredEnvInt(key)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid value for %s: %s (must be a positive duration)", key, value)
	}
	return d, nil
}
