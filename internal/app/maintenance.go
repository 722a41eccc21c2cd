package app

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Maintenance schedules background housekeeping: purging expired selection
// cache entries and closing idle pooled connections.
type Maintenance struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewMaintenance registers the housekeeping jobs against the app. The cache
// purge runs every 15 minutes; the pool sweep hourly.
func NewMaintenance(a *App, logger *slog.Logger) (*Maintenance, error) {
	m := &Maintenance{
		cron:   cron.New(),
		logger: logger.With("component", "maintenance"),
	}

	if _, err := m.cron.AddFunc("*/15 * * * *", func() {
		if evicted := a.Cache.Purge(); evicted > 0 {
			m.logger.Info("purged expired selections", "evicted", evicted)
		}
	}); err != nil {
		return nil, err
	}

	if _, err := m.cron.AddFunc("0 * * * *", func() {
		open := a.Pool.Len()
		a.Pool.CleanupAll()
		m.logger.Info("released pooled connections", "closed", open)
	}); err != nil {
		return nil, err
	}

	return m, nil
}

// Start begins running the scheduled jobs.
func (m *Maintenance) Start() {
	m.cron.Start()
	m.logger.Info("maintenance scheduler started")
}

// Stop halts scheduling; running jobs finish.
func (m *Maintenance) Stop() {
	m.cron.Stop()
	m.logger.Info("maintenance scheduler stopped")
}
