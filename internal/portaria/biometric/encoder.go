// Package biometric talks to the external face-encoding service and keeps
// the photo and encoding files that belong to registered people.
//
// The encoder is opaque to portaria: a photo goes in, a vector (or a
// failure) comes out.
package biometric

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/BrandonDHaskell/portaria/internal/logging"
	"github.com/BrandonDHaskell/portaria/internal/metrics"
)

var (
	// ErrNoFace means the photo was readable but held no face.
	ErrNoFace = errors.New("biometric: no face found in photo")
	// ErrEncoderDisabled is returned when no encoder is configured.
	ErrEncoderDisabled = errors.New("biometric: encoder disabled")
)

// Encoding is a face embedding vector.
type Encoding []float64

type Encoder interface {
	Encode(ctx context.Context, photo []byte, filename string) (Encoding, error)
}

// DisabledEncoder always fails with ErrEncoderDisabled.
type DisabledEncoder struct{}

func (DisabledEncoder) Encode(context.Context, []byte, string) (Encoding, error) {
	return nil, ErrEncoderDisabled
}

type HTTPConfig struct {
	URL              string
	Timeout          time.Duration
	FailureThreshold uint32        // consecutive failures before the breaker opens
	OpenTimeout      time.Duration // how long the breaker stays open
	Client           *http.Client  // optional; Timeout is ignored when set
}

// HTTPEncoder posts photos to an encoding service. Calls go through a
// circuit breaker so a dead service fails fast instead of stalling
// registrations for the full timeout.
type HTTPEncoder struct {
	url    string
	client *http.Client
	cb     *gobreaker.CircuitBreaker[Encoding]
	name   string
}

type encodeResponse struct {
	Encoding Encoding `json:"encoding"`
}

func NewHTTPEncoder(cfg HTTPConfig) *HTTPEncoder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	name := "face-encoder"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	log := logging.With("biometric")

	cb := gobreaker.NewCircuitBreaker[Encoding](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// A photo without a face is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoFace)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("encoder circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &HTTPEncoder{
		url:    strings.TrimSpace(cfg.URL),
		client: client,
		cb:     cb,
		name:   name,
	}
}

// Encode returns the embedding for photo. ErrNoFace when the service found
// no face; gobreaker.ErrOpenState while the breaker is open.
func (e *HTTPEncoder) Encode(ctx context.Context, photo []byte, filename string) (Encoding, error) {
	enc, err := e.cb.Execute(func() (Encoding, error) {
		return e.post(ctx, photo, filename)
	})

	switch {
	case err == nil, errors.Is(err, ErrNoFace):
		metrics.CircuitBreakerRequests.WithLabelValues(e.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(e.name, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(e.name, "failure").Inc()
	}
	return enc, err
}

// State exposes the breaker state for status output.
func (e *HTTPEncoder) State() gobreaker.State {
	return e.cb.State()
}

func (e *HTTPEncoder) post(ctx context.Context, photo []byte, filename string) (Encoding, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(photo))
	if err != nil {
		return nil, fmt.Errorf("encoder request: %w", err)
	}
	req.Header.Set("Content-Type", http.DetectContentType(photo))
	req.Header.Set("Accept", "application/json")
	if filename != "" {
		req.Header.Set("X-Filename", filename)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("encoder call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("encoder read: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, ErrNoFace
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("encoder status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out encodeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("encoder decode: %w", err)
	}
	if len(out.Encoding) == 0 {
		return nil, ErrNoFace
	}
	return out.Encoding, nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
