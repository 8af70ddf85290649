package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"
)

// Maintainer periodically checkpoints the WAL back into the main database
// file and refreshes query planner statistics.  The ledger never deletes
// rows, so without checkpoints the -wal file only grows.
//
// An interval of 0 disables maintenance entirely.
type Maintainer struct {
	db       *sql.DB
	interval time.Duration
	logger   *log.Logger

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewMaintainer creates a maintainer but does not start it.
func NewMaintainer(db *sql.DB, interval time.Duration, logger *log.Logger) *Maintainer {
	return &Maintainer{
		db:       db,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs one pass immediately, then repeats on the interval until ctx
// is cancelled or Stop is called.
func (m *Maintainer) Start(ctx context.Context) {
	if m.interval <= 0 {
		m.logger.Printf("db maintenance disabled (interval=0)")
		close(m.done)
		return
	}

	ctx, m.cancel = context.WithCancel(ctx)
	go m.loop(ctx)

	m.logger.Printf("db maintenance started (interval=%s)", m.interval)
}

// Stop signals the loop to exit and waits for it.  Safe to call more than
// once.
func (m *Maintainer) Stop() {
	m.stopOnce.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
	})
	<-m.done
}

func (m *Maintainer) loop(ctx context.Context) {
	defer close(m.done)

	m.run(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.run(ctx)
		}
	}
}

func (m *Maintainer) run(ctx context.Context) {
	if err := m.RunOnce(ctx); err != nil && ctx.Err() == nil {
		m.logger.Printf("db maintenance error: %v", err)
	}
}

// RunOnce performs a single checkpoint and optimize pass.
func (m *Maintainer) RunOnce(ctx context.Context) error {
	var busy, logFrames, checkpointed int
	err := m.db.QueryRowContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE);`).Scan(&busy, &logFrames, &checkpointed)
	if err != nil {
		return fmt.Errorf("wal_checkpoint: %w", err)
	}
	if busy != 0 {
		m.logger.Printf("db maintenance: checkpoint blocked by a reader, will retry")
	}
	if _, err := m.db.ExecContext(ctx, `PRAGMA optimize;`); err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	return nil
}
