package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/reportdesk/internal/database"
	"github.com/aristath/reportdesk/internal/events"
)

// StatusMonitor periodically checks the store database and emits an error event
// when it turns unhealthy.
type StatusMonitor struct {
	eventManager *events.Manager
	db           *database.DB
	log          zerolog.Logger

	mu          sync.Mutex
	lastHealthy bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewStatusMonitor creates a new status monitor
func NewStatusMonitor(eventManager *events.Manager, db *database.DB, log zerolog.Logger) *StatusMonitor {
	return &StatusMonitor{
		eventManager: eventManager,
		db:           db,
		log:          log.With().Str("component", "status_monitor").Logger(),
		lastHealthy:  true,
	}
}

// Start begins periodic status monitoring
func (m *StatusMonitor) Start(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.monitor(ctx, interval, m.done)
}

// Stop ends monitoring and waits for the loop to exit
func (m *StatusMonitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// monitor runs the periodic monitoring loop
func (m *StatusMonitor) monitor(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.checkDatabase(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkDatabase(ctx)
		}
	}
}

// checkDatabase runs a health check and reports transitions
func (m *StatusMonitor) checkDatabase(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := m.db.HealthCheck(checkCtx)
	healthy := err == nil

	m.mu.Lock()
	changed := healthy != m.lastHealthy
	m.lastHealthy = healthy
	m.mu.Unlock()

	if !changed {
		return healthy
	}

	if healthy {
		m.log.Info().Str("database", m.db.Name()).Msg("Database healthy again")
		return healthy
	}

	m.log.Error().Err(err).Str("database", m.db.Name()).Msg("Database health check failed")
	if m.eventManager != nil {
		m.eventManager.EmitError("status_monitor", fmt.Errorf("database health check failed: %w", err), map[string]interface{}{
			"database": m.db.Name(),
		})
	}
	return healthy
}
