package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/labauth/internal/authority/store"
)

// HousekeepingService periodically deletes expired recovery codes, setup
// tokens and trusted devices.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults a non-positive interval to one hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs a cleanup immediately and then every Interval until Stop.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())
	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup deletes expired records. A failing table does not stop the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := time.Now()

	tasks := []struct {
		name string
		fn   func(context.Context, time.Time) error
	}{
		{"recovery_codes", s.Store.RecoveryCodes().DeleteExpiredRecoveryCodes},
		{"setup_tokens", s.Store.SetupTokens().DeleteExpiredSetupTokens},
		{"trusted_devices", s.Store.TrustedDevices().DeleteExpiredDevices},
	}

	ok := 0
	for _, t := range tasks {
		if err := t.fn(ctx, now); err != nil {
			s.Logger.Error("housekeeping failed", "table", t.name, "err", err)
			continue
		}
		ok++
	}
	s.Logger.Debug("housekeeping completed", "successful", ok, "total", len(tasks))
}
