package memory

import (
	"context"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

func (t *tx) GetSettings(_ context.Context) (store.Settings, bool, error) {
	return t.s.settings, t.s.hasSettings, nil
}

func (t *tx) PutSettings(_ context.Context, s store.Settings) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	prev, had := t.s.settings, t.s.hasSettings
	t.s.settings, t.s.hasSettings = s, true
	t.onRollback(func() { t.s.settings, t.s.hasSettings = prev, had })
	return nil
}

func (t *tx) GetClockMark(_ context.Context) (types.LogicalTime, error) {
	return t.s.clockMark, nil
}

func (t *tx) PutClockMark(_ context.Context, m types.LogicalTime) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	prev := t.s.clockMark
	t.s.clockMark = m
	t.onRollback(func() { t.s.clockMark = prev })
	return nil
}
