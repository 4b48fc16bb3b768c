package app

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Drasasse/gestion-commerce-sub001/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedService(t *testing.T) (*appService, *observer.ObservedLogs) {
	t.Helper()
	obsCore, logs := observer.New(zapcore.DebugLevel)
	return &appService{log: zap.New(obsCore)}, logs
}

func TestCheck_InfrastructureErrorsAreHidden(t *testing.T) {
	s, logs := newObservedService(t)

	err := s.check("create_sale", 3, 0, fmt.Errorf("insert sale: %w", errors.New("connection reset")))
	require.ErrorIs(t, err, ErrInternal)
	assert.NotContains(t, err.Error(), "connection reset")

	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "create_sale", fields["op"])
	assert.EqualValues(t, 3, fields["boutique_id"])
	assert.Contains(t, fields["error"], "connection reset")
}

func TestCheck_DomainErrorsPassThrough(t *testing.T) {
	s, logs := newObservedService(t)

	stockErr := &core.InsufficientStockError{Product: "Sac", Available: 1, Requested: 2}
	err := s.check("create_sale", 1, 0, stockErr)
	assert.Same(t, stockErr, err)
	assert.Equal(t, 0, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.DebugLevel).Len())

	assert.NoError(t, s.check("noop", 0, 0, nil))
}

func TestBoutique_ResolvesThroughPrincipal(t *testing.T) {
	s, _ := newObservedService(t)
	own := 2
	manager := core.Principal{UserID: 5, Role: core.RoleGestionnaire, BoutiqueID: &own}

	id, err := s.boutique("list_sales", manager, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, id)

	_, err = s.boutique("list_sales", manager, 1)
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	id, err = s.boutique("list_sales", core.Principal{UserID: 1, Role: core.RoleAdmin}, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, id)
}

func TestSumRemaining(t *testing.T) {
	sales := []core.Sale{
		{AmountRemaining: decimal.RequireFromString("150")},
		{AmountRemaining: decimal.RequireFromString("0")},
		{AmountRemaining: decimal.RequireFromString("49.50")},
	}
	assert.True(t, sumRemaining(sales).Equal(decimal.RequireFromString("199.50")))
}
