package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMonthlySummary(t *testing.T) {
	at := func(month time.Month, day int) time.Time { return time.Date(2026, month, day, 10, 0, 0, 0, time.UTC) }
	entries := []ledgerEntry{
		{ID: 1, OccurredAt: at(time.January, 5), Type: TxSale, Amount: d("1000")},
		{ID: 2, OccurredAt: at(time.January, 6), Type: TxRevenue, Amount: d("200")},
		{ID: 3, OccurredAt: at(time.January, 7), Type: TxExpense, Amount: d("-150")},
		{ID: 4, OccurredAt: at(time.January, 8), Type: TxPurchase, Amount: d("300")},
		{ID: 5, OccurredAt: at(time.March, 1), Type: TxCapitalInjection, Amount: d("5000")},
		{ID: 6, OccurredAt: at(time.March, 2), Type: TxWithdrawal, Amount: d("1000")},
	}

	sum := buildMonthlySummary(2026, entries, time.UTC)
	require.Len(t, sum.Months, 12)

	jan := sum.Months[0]
	assert.Equal(t, 1, jan.Month)
	assert.True(t, jan.Revenue.Equal(d("1200")))
	assert.True(t, jan.Expenses.Equal(d("450")))
	assert.True(t, jan.Net.Equal(d("750")))
	assert.True(t, jan.Capital.IsZero())

	mar := sum.Months[2]
	assert.True(t, mar.Capital.Equal(d("4000")))
	assert.True(t, mar.Net.IsZero())

	assert.True(t, sum.Totals.Revenue.Equal(d("1200")))
	assert.True(t, sum.Totals.Capital.Equal(d("4000")))
	assert.True(t, sum.Months[11].Revenue.IsZero())
}

func TestBuildBalanceStatement(t *testing.T) {
	entries := []ledgerEntry{
		{ID: 1, Type: TxCapitalInjection, Amount: d("1000")},
		{ID: 2, Type: TxExpense, Amount: d("-200")},
		{ID: 3, Type: TxPurchase, Amount: d("300")},
		{ID: 4, Type: TxSale, Amount: d("150")},
		{ID: 5, Type: TxWithdrawal, Amount: d("50")},
	}
	st := buildBalanceStatement(d("100"), entries)

	require.Len(t, st.Lines, 5)
	want := []string{"1100", "900", "600", "750", "700"}
	for i, w := range want {
		assert.True(t, st.Lines[i].Balance.Equal(d(w)), "line %d: got %s want %s", i, st.Lines[i].Balance, w)
	}
	assert.True(t, st.Lines[2].Effect.Equal(d("-300")))
	assert.True(t, st.ClosingBalance.Equal(d("700")))
	assert.True(t, st.OpeningBalance.Equal(d("100")))
}

func TestAgingBucketFor(t *testing.T) {
	assert.Equal(t, Bucket0To30, AgingBucketFor(0))
	assert.Equal(t, Bucket0To30, AgingBucketFor(30))
	assert.Equal(t, Bucket31To60, AgingBucketFor(31))
	assert.Equal(t, Bucket61To90, AgingBucketFor(90))
	assert.Equal(t, BucketOver90, AgingBucketFor(91))
}

func TestBuildAging(t *testing.T) {
	asOf := time.Date(2026, time.June, 30, 12, 0, 0, 0, time.UTC)
	aging := buildAging(asOf, []Receivable{
		{SaleID: 1, Number: "V001", CreatedAt: asOf.AddDate(0, 0, -3), AmountRemaining: d("100")},
		{SaleID: 2, Number: "V002", CreatedAt: asOf.AddDate(0, 0, -45), AmountRemaining: d("50")},
		{SaleID: 3, Number: "V003", CreatedAt: asOf.AddDate(0, 0, -120), AmountRemaining: d("25")},
		{SaleID: 4, Number: "V004", CreatedAt: asOf.AddDate(0, 0, -10), AmountRemaining: d("5")},
	})

	require.Len(t, aging.Buckets, 4)
	assert.Equal(t, 2, aging.Buckets[0].Count)
	assert.True(t, aging.Buckets[0].Amount.Equal(d("105")))
	assert.Equal(t, 1, aging.Buckets[1].Count)
	assert.Equal(t, 0, aging.Buckets[2].Count)
	assert.Equal(t, 1, aging.Buckets[3].Count)
	assert.True(t, aging.Total.Equal(d("180")))
	assert.Equal(t, 45, aging.Receivables[1].AgeDays)
	assert.Equal(t, Bucket31To60, aging.Receivables[1].Bucket)
}
