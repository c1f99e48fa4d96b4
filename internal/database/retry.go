package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// sleep is replaced in tests.
var sleep = time.Sleep

// retry calls fn up to attempts times, waiting one second longer after each failure.
func retry(attempts int, logger zerolog.Logger, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		logger.Error().
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Err(err).
			Msg("Connection attempt failed")

		if attempt < attempts {
			retryDelay := time.Duration(attempt) * time.Second
			logger.Debug().Dur("delay", retryDelay).Msg("Retrying connection")
			sleep(retryDelay)
		}
	}

	return fmt.Errorf("could not connect after %d attempts, last error: %w", attempts, err)
}
