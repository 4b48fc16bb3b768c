package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		paid, total string
		want        PaymentStatus
	}{
		{"0", "1000", StatusUnpaid},
		{"0.00", "1000", StatusUnpaid},
		{"400", "1000", StatusPartial},
		{"999.99", "1000", StatusPartial},
		{"1000", "1000", StatusPaid},
		{"1000.00", "1000", StatusPaid},
		{"0", "0", StatusUnpaid},
	}
	for _, tt := range tests {
		t.Run(tt.paid+"/"+tt.total, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(d(tt.paid), d(tt.total)))
		})
	}
}

func TestPaymentMethod(t *testing.T) {
	for _, m := range []PaymentMethod{MethodCash, MethodCard, MethodTransfer, MethodCheque, MethodMobileMoney} {
		assert.True(t, m.Valid(), m)
	}
	assert.False(t, PaymentMethod("BITCOIN").Valid())
	assert.Equal(t, MethodCash, PaymentMethod("").orDefault())
	assert.Equal(t, MethodCard, MethodCard.orDefault())
}

func TestSaleInput_Validate(t *testing.T) {
	negative := d("-1")
	in := SaleInput{
		Lines: []SaleLineInput{
			{ProductID: 0, Quantity: 0, UnitPrice: d("-5")},
		},
		AmountPaid:    &negative,
		PaymentMethod: "TROC",
	}
	err := in.validate()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make([]string, 0, len(verr.Issues))
	for _, is := range verr.Issues {
		fields = append(fields, is.Field)
	}
	assert.ElementsMatch(t, []string{
		"lines[0].product_id", "lines[0].quantity", "lines[0].unit_price", "amount_paid", "payment_method",
	}, fields)

	assert.ErrorIs(t, SaleInput{}.validate(), ErrValidation)

	ok := SaleInput{Lines: []SaleLineInput{{ProductID: 1, Quantity: 2}}}
	assert.NoError(t, ok.validate())
}

func TestPaymentInput_Validate(t *testing.T) {
	assert.NoError(t, PaymentInput{Amount: d("10")}.validate())
	assert.ErrorIs(t, PaymentInput{Amount: decimal.Zero}.validate(), ErrValidation)
	assert.ErrorIs(t, PaymentInput{Amount: d("10"), Method: "X"}.validate(), ErrValidation)
}
