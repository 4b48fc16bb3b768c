package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/Drasasse/gestion-commerce-sub001/internal/app"
	"github.com/Drasasse/gestion-commerce-sub001/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	app.ApplicationService
	caller     core.Principal
	boutique   int
	stockQuery core.StockFilter
	violations []core.Violation
}

func (f *fakeService) GetStockLevels(_ context.Context, p core.Principal, boutiqueID int, filter core.StockFilter) (*app.StockResult, error) {
	f.caller, f.boutique, f.stockQuery = p, boutiqueID, filter
	return &app.StockResult{
		BoutiqueID: boutiqueID,
		Levels: []core.Stock{
			{ProductName: "Sac cuir", CategoryName: "Maroquinerie", Quantity: 2, AlertThreshold: 5, IsLow: true},
		},
		LowCount: 1,
	}, nil
}

func (f *fakeService) MonthlySummary(_ context.Context, _ core.Principal, boutiqueID, year int) (*core.MonthlySummary, error) {
	f.boutique = boutiqueID
	return &core.MonthlySummary{Year: year, Totals: core.MonthlyRow{Revenue: decimal.RequireFromString("1250.5")}}, nil
}

func (f *fakeService) CheckInvariants(_ context.Context, _ core.Principal, boutiqueID int) (*app.InvariantReport, error) {
	return &app.InvariantReport{BoutiqueID: boutiqueID, Violations: f.violations}, nil
}

func TestRun_RequiresBoutique(t *testing.T) {
	err := Run(context.Background(), &fakeService{}, []string{"stock"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--boutique")
}

func TestRun_UnknownCommand(t *testing.T) {
	err := Run(context.Background(), &fakeService{}, []string{"purge", "--boutique", "1"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestRun_StockRunsAsAdministrator(t *testing.T) {
	svc := &fakeService{}
	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), svc, []string{"stock", "--boutique", "4", "--low"}, &out))

	assert.Equal(t, core.RoleAdmin, svc.caller.Role)
	assert.Equal(t, 4, svc.boutique)
	assert.True(t, svc.stockQuery.LowStockOnly)
	assert.Contains(t, out.String(), "Sac cuir")
	assert.Contains(t, out.String(), "1 en alerte")
}

func TestRun_MonthlyReport(t *testing.T) {
	svc := &fakeService{}
	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), svc, []string{"report", "monthly", "--boutique", "2", "--year", "2025"}, &out))
	assert.Equal(t, 2, svc.boutique)
	assert.Contains(t, out.String(), "SYNTHESE 2025")
	assert.Contains(t, out.String(), "1250.50")

	err := Run(context.Background(), svc, []string{"report", "weekly", "--boutique", "2"}, &out)
	assert.Error(t, err)
}

func TestRun_CheckReportsViolations(t *testing.T) {
	svc := &fakeService{}
	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), svc, []string{"check", "--boutique", "1"}, &out))
	assert.Contains(t, out.String(), "aucune incohérence")

	svc.violations = []core.Violation{{Entity: "vente", ID: 3, Ref: "V003", Detail: "statut PAID, attendu PARTIAL"}}
	out.Reset()
	err := Run(context.Background(), svc, []string{"check", "--boutique", "1"}, &out)
	assert.ErrorIs(t, err, ErrViolations)
	assert.Contains(t, out.String(), "V003")
}
