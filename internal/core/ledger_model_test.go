package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAmount(t *testing.T) {
	assert.True(t, NormalizeAmount(TxExpense, d("50")).Equal(d("-50")))
	assert.True(t, NormalizeAmount(TxExpense, d("-50")).Equal(d("-50")))
	for _, typ := range []TransactionType{TxRevenue, TxCapitalInjection, TxWithdrawal, TxSale, TxPurchase} {
		assert.True(t, NormalizeAmount(typ, d("-75")).Equal(d("75")), typ)
	}
}

func TestTransactionEffect(t *testing.T) {
	tests := []struct {
		typ  TransactionType
		want string
	}{
		{TxSale, "100"},
		{TxRevenue, "100"},
		{TxCapitalInjection, "100"},
		{TxExpense, "-100"},
		{TxPurchase, "-100"},
		{TxWithdrawal, "-100"},
	}
	for _, tt := range tests {
		stored := NormalizeAmount(tt.typ, d("100"))
		assert.True(t, TransactionEffect(tt.typ, stored).Equal(d(tt.want)), tt.typ)
	}
}

func TestTransactionType_Manual(t *testing.T) {
	assert.True(t, TxRevenue.Manual())
	assert.True(t, TxWithdrawal.Manual())
	assert.False(t, TxSale.Manual())
	assert.False(t, TxPurchase.Manual())
	assert.False(t, TransactionType("GIFT").Manual())
}

func TestTransactionInput_Validate(t *testing.T) {
	assert.NoError(t, TransactionInput{Type: TxExpense, Amount: d("12.50"), Description: "Loyer"}.validate())
	assert.ErrorIs(t, TransactionInput{Type: TxSale, Amount: d("1"), Description: "x"}.validate(), ErrValidation)
	assert.ErrorIs(t, TransactionInput{Type: TxExpense, Amount: d("-1"), Description: "x"}.validate(), ErrValidation)
	assert.ErrorIs(t, TransactionInput{Type: TxExpense, Amount: d("1"), Description: "  "}.validate(), ErrValidation)
}

func TestTransaction_Linked(t *testing.T) {
	id := 3
	assert.False(t, Transaction{}.Linked())
	assert.True(t, Transaction{PaymentID: &id}.Linked())
	assert.True(t, Transaction{PurchaseOrderID: &id}.Linked())
}
