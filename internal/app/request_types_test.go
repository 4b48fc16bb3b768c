package app

import (
	"errors"
	"testing"
	"time"

	"github.com/Drasasse/gestion-commerce-sub001/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSaleRequest_ToInput(t *testing.T) {
	clientID := 4
	req := CreateSaleRequest{
		ClientID: &clientID,
		Lines: []SaleLineRequest{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1, UnitPrice: "1500.50"},
		},
		AmountPaid:    "1000",
		PaymentMethod: " mobile_money ",
	}
	in, err := req.toInput()
	require.NoError(t, err)

	assert.Equal(t, &clientID, in.ClientID)
	require.Len(t, in.Lines, 2)
	assert.True(t, in.Lines[0].UnitPrice.IsZero(), "blank price means catalog price")
	assert.True(t, in.Lines[1].UnitPrice.Equal(decimal.RequireFromString("1500.50")))
	require.NotNil(t, in.AmountPaid)
	assert.True(t, in.AmountPaid.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, core.MethodMobileMoney, in.PaymentMethod)
}

func TestCreateSaleRequest_BlankAmountPaidMeansFullPayment(t *testing.T) {
	in, err := CreateSaleRequest{Lines: []SaleLineRequest{{ProductID: 1, Quantity: 1}}}.toInput()
	require.NoError(t, err)
	assert.Nil(t, in.AmountPaid)
}

func TestRequests_CollectEveryParseError(t *testing.T) {
	_, err := ProductRequest{Name: "x", PurchasePrice: "abc", SalePrice: "1,5"}.toInput()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrValidation))

	var ve *core.ValidationError
	require.True(t, errors.As(err, &ve))
	fields := make([]string, 0, len(ve.Issues))
	for _, is := range ve.Issues {
		fields = append(fields, is.Field)
	}
	assert.ElementsMatch(t, []string{"purchase_price", "sale_price"}, fields)
}

func TestPeriod_ToIsInclusive(t *testing.T) {
	var f fieldParser
	r := f.period("2024-03-01", "2024-03-31")
	require.NoError(t, f.err())
	require.NotNil(t, r.From)
	require.NotNil(t, r.To)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), *r.From)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.Local), *r.To)

	f = fieldParser{}
	f.period("01/03/2024", "")
	assert.ErrorIs(t, f.err(), core.ErrValidation)
}

func TestQueries_RejectUnknownEnums(t *testing.T) {
	_, err := OrderQuery{Status: "shipped"}.toFilter()
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = TransactionQuery{Type: "gift"}.toFilter()
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = MovementQuery{Kind: "sideways"}.toFilter()
	assert.ErrorIs(t, err, core.ErrValidation)

	f, err := SaleQuery{Status: "partial", Limit: 10}.toFilter()
	require.NoError(t, err)
	require.NotNil(t, f.Status)
	assert.Equal(t, core.StatusPartial, *f.Status)
	assert.Equal(t, 10, f.Limit)
}

func TestReceiveOrderRequest_ToInput(t *testing.T) {
	in, err := ReceiveOrderRequest{
		Lines:           []ReceivedLineRequest{{OrderLineID: 3, QuantityReceived: 30}},
		AmountPaid:      "250",
		CancelRemainder: true,
	}.toInput()
	require.NoError(t, err)
	assert.Equal(t, []core.ReceivedLine{{OrderLineID: 3, QuantityReceived: 30}}, in.Lines)
	assert.True(t, in.AmountPaid.Equal(decimal.NewFromInt(250)))
	assert.True(t, in.CancelRemainder)
}

func TestUserRequest_DefaultsToActive(t *testing.T) {
	in := UserRequest{Username: "awa", Role: "gestionnaire"}.toInput()
	assert.True(t, in.IsActive)
	assert.Equal(t, core.RoleGestionnaire, in.Role)

	inactive := false
	in = UserRequest{Username: "awa", Role: "ADMIN", IsActive: &inactive}.toInput()
	assert.False(t, in.IsActive)
}

func TestAmounts_RejectSubCentPrecision(t *testing.T) {
	_, err := CreateSaleRequest{
		Lines: []SaleLineRequest{
			{ProductID: 1, Quantity: 1, UnitPrice: "0.005"},
			{ProductID: 2, Quantity: 1, UnitPrice: "0.005"},
		},
		AmountPaid: "0.001",
	}.toInput()
	var ve *core.ValidationError
	require.True(t, errors.As(err, &ve))
	fields := make([]string, 0, len(ve.Issues))
	for _, is := range ve.Issues {
		fields = append(fields, is.Field)
	}
	assert.ElementsMatch(t, []string{"lines[0].unit_price", "lines[1].unit_price", "amount_paid"}, fields)

	_, err = ProductRequest{CategoryID: 1, Name: "Foulard", PurchasePrice: "0.001", SalePrice: "0.004"}.toInput()
	assert.ErrorIs(t, err, core.ErrValidation)

	in, err := ProductRequest{CategoryID: 1, Name: "Foulard", PurchasePrice: "10.500", SalePrice: "15.5"}.toInput()
	require.NoError(t, err, "trailing zeros are not extra precision")
	assert.True(t, in.PurchasePrice.Equal(decimal.RequireFromString("10.50")))
}
