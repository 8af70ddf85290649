package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

// TimeField names the ambient time input in errors.  It matches the HTTP
// header and the gRPC metadata key.
const TimeField = "x-custos-time"

// LogicalClock hands transports the logical time of each call.  Its
// high-water mark is persisted in the store before any call runs at a
// later time, so a restart resumes from the mark instead of 0.  Safe for
// concurrent use.
type LogicalClock struct {
	st   store.Store
	wall bool

	mu   sync.Mutex
	mark types.LogicalTime
}

// NewLogicalClock returns a clock over st.  It starts at 0 until Load or
// Ledger.Bootstrap seeds it from the persisted mark.  With wall set, a
// call without a time runs at the current Unix second.
func NewLogicalClock(st store.Store, wall bool) *LogicalClock {
	return &LogicalClock{st: st, wall: wall}
}

// Load seeds the clock from the persisted mark.
func (c *LogicalClock) Load(ctx context.Context) error {
	return c.st.View(ctx, func(ctx context.Context, tx store.ReadTx) error {
		m, err := tx.GetClockMark(ctx)
		if err != nil {
			return err
		}
		c.seed(m)
		return nil
	})
}

func (c *LogicalClock) seed(m types.LogicalTime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m > c.mark {
		c.mark = m
	}
}

// Mark returns the highest time admitted so far.
func (c *LogicalClock) Mark() types.LogicalTime {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mark
}

// Admit returns the time a call runs at.  A supplied time is used as
// given and rejected when it lies below the mark.  Without one the call
// runs at the mark, or at the current Unix second in wall mode.  A time
// above the mark is persisted before it is returned.
func (c *LogicalClock) Admit(ctx context.Context, t types.LogicalTime, supplied bool) (types.LogicalTime, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !supplied {
		t = c.mark
		if wall := types.LogicalTime(time.Now().Unix()); c.wall && wall > t {
			t = wall
		}
	}
	if t < c.mark {
		return 0, staleTime(t, c.mark)
	}
	if t == c.mark {
		return t, nil
	}

	err := c.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		return advanceMark(ctx, tx, t)
	})
	if err != nil {
		return 0, err
	}
	c.mark = t
	return t, nil
}

// advanceMark moves the persisted mark up to t.
func advanceMark(ctx context.Context, tx store.Tx, t types.LogicalTime) error {
	m, err := tx.GetClockMark(ctx)
	if err != nil {
		return err
	}
	if t < m {
		return staleTime(t, m)
	}
	if t == m {
		return nil
	}
	return tx.PutClockMark(ctx, t)
}

func staleTime(t, mark types.LogicalTime) *Error {
	return invalid(TimeField, fmt.Sprintf("time %d is before the ledger clock at %d", t, mark))
}
