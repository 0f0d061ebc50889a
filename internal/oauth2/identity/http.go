package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
	"github.com/pesuauth/pesu-oauth2/pkg/slogx"
)

const (
	DefaultTimeout  = 10 * time.Second
	defaultMaxTries = 3
	maxResponseSize = 4 << 20 // photos are inlined as base64
)

// HTTPBridge posts credentials as JSON to a pesu-auth compatible endpoint.
type HTTPBridge struct {
	URL      string
	Client   *http.Client
	MaxTries uint

	// InitialInterval overrides the first retry delay; tests shrink it.
	InitialInterval time.Duration
}

var _ Bridge = (*HTTPBridge)(nil)

// NewHTTPBridge returns a bridge with the given per-attempt timeout.
func NewHTTPBridge(url string, timeout time.Duration) *HTTPBridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPBridge{
		URL:      url,
		Client:   &http.Client{Timeout: timeout},
		MaxTries: defaultMaxTries,
	}
}

type authenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Profile  bool   `json:"profile"`
}

type authenticateResponse struct {
	Status  bool           `json:"status"`
	Profile domain.Profile `json:"profile"`
	Message string         `json:"message"`
}

// Authenticate retries only transport failures. A decoded answer, including
// a rejection, ends the loop.
func (b *HTTPBridge) Authenticate(ctx context.Context, username, password string) (Result, error) {
	l := slogx.FromContext(ctx)

	body, err := json.Marshal(authenticateRequest{Username: username, Password: password, Profile: true})
	if err != nil {
		return Result{}, err
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 250 * time.Millisecond
	if b.InitialInterval > 0 {
		exp.InitialInterval = b.InitialInterval
	}
	exp.RandomizationFactor = 0.1
	exp.Multiplier = 2
	exp.Reset()

	tries := b.MaxTries
	if tries == 0 {
		tries = defaultMaxTries
	}

	attempt := 0
	operation := func() (Result, error) {
		attempt++
		res, err := b.do(ctx, body)
		if err != nil {
			l.Warn("identity bridge call failed", "attempt", attempt, "error", err)
		}
		return res, err
	}

	res, err := backoff.Retry(ctx, operation, backoff.WithBackOff(exp), backoff.WithMaxTries(tries))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res, nil
}

func (b *HTTPBridge) do(ctx context.Context, body []byte) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.URL, bytes.NewReader(body))
	if err != nil {
		return Result{}, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := b.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, backoff.Permanent(err)
		}
		return Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Result{}, err
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{}, backoff.Permanent(fmt.Errorf("bridge returned %d", resp.StatusCode))
	}

	var out authenticateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, backoff.Permanent(fmt.Errorf("decode bridge response (status %d): %w", resp.StatusCode, err))
	}

	if !out.Status {
		msg := out.Message
		if msg == "" {
			msg = "Invalid username or password."
		}
		return Result{Success: false, Error: msg}, nil
	}
	return Result{Success: true, Profile: Normalize(out.Profile)}, nil
}
