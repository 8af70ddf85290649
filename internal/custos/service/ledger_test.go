package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/service"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
)

func TestBootstrap_SeedsSettingsOnce(t *testing.T) {
	l, _ := newTestLedger(t, func(p *service.Policy) { p.MaxGrantsPerRecord = 7 })
	ctx := context.Background()

	s, err := l.Bootstrap(ctx, dave)
	require.NoError(t, err)
	assert.Equal(t, store.Settings{Admin: dave, MaxGrantsPerRecord: 7, AuditEnabled: true}, s)

	// A later bootstrap keeps the stored administrator.
	s, err = l.Bootstrap(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, dave, s.Admin)

	require.ErrorIs(t, l.Grants.ClaimAdmin(ctx, call(alice, 1)), service.ErrAlreadyOwned)

	entries, err := l.Audit.List(ctx, store.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBootstrap_WithoutAdmin(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	s, err := l.Bootstrap(ctx, "")
	require.NoError(t, err)
	assert.True(t, s.Admin.IsNull())

	require.NoError(t, l.Grants.ClaimAdmin(ctx, call(alice, 1)))
	s, err = l.Bootstrap(ctx, dave)
	require.NoError(t, err)
	assert.Equal(t, alice, s.Admin)
}
