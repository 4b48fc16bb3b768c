package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaleCheck_Violations(t *testing.T) {
	consistent := saleCheck{id: 1, number: "V001", total: d("1000"), paid: d("400"), remaining: d("600"), payments: d("400"), status: StatusPartial}
	assert.Empty(t, consistent.violations())

	broken := saleCheck{id: 2, number: "V002", total: d("1000"), paid: d("1000"), remaining: d("100"), payments: d("900"), status: StatusPartial}
	v := broken.violations()
	require.Len(t, v, 3)
	assert.Equal(t, "V002", v[0].Ref)
	assert.Contains(t, v[0].String(), "attendu PAID")
}

func TestOrderCheck_Violations(t *testing.T) {
	consistent := orderCheck{id: 1, number: "CMD001", total: d("300"), paid: d("100"), remaining: d("200"), lineSum: d("300")}
	assert.Empty(t, consistent.violations())

	broken := orderCheck{id: 2, number: "CMD002", total: d("500"), paid: d("0"), remaining: d("500"), lineSum: d("300"), overReceived: 1}
	assert.Len(t, broken.violations(), 2)
}
