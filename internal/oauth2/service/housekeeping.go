package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
)

// PurgeResult counts the rows removed by one housekeeping pass.
type PurgeResult struct {
	AuthorizationCodes int64
	ConsentRequests    int64
	Tokens             int64
}

// HousekeepingService removes expired codes, consent tickets and tokens
// whose refresh window has closed. Purge is the one-shot entry point used
// by the housekeep command; Start runs it on an interval.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewHousekeepingService(s store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:    s,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Purge runs each deletion independently so one failure does not stop the
// others. The first error is returned.
func (s *HousekeepingService) Purge(ctx context.Context) (PurgeResult, error) {
	ts := now(s.Now)
	var (
		res      PurgeResult
		firstErr error
	)

	record := func(what string, n int64, err error, into *int64) {
		if err != nil {
			s.Logger.Error("housekeeping failed", "table", what, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		*into = n
	}

	n, err := s.Store.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx, ts)
	record("oauth2_authorization_codes", n, err, &res.AuthorizationCodes)

	n, err = s.Store.ConsentRequests().DeleteExpiredConsentRequests(ctx, ts)
	record("oauth2_consent_requests", n, err, &res.ConsentRequests)

	n, err = s.Store.Tokens().DeleteDeadTokens(ctx, ts)
	record("oauth2_tokens", n, err, &res.Tokens)

	s.Logger.Info("housekeeping completed",
		"authorization_codes", res.AuthorizationCodes,
		"consent_requests", res.ConsentRequests,
		"tokens", res.Tokens,
	)
	return res, firstErr
}

// Start launches the periodic worker. Stop must be called to release it.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop blocks until an in-flight purge has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _ = s.Purge(ctx)
	for {
		select {
		case <-ticker.C:
			_, _ = s.Purge(ctx)
		case <-s.stopCh:
			return
		}
	}
}
