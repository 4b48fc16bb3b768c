package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Drasasse/gestion-commerce-sub001/internal/core"
)

// newOrder creates a supplier and a one-line order of qty units at unitPrice.
func (e *env) newOrder(t *testing.T, product *core.Product, qty int, unitPrice string) *core.PurchaseOrder {
	t.Helper()
	ctx := context.Background()
	supplier, err := e.suppliers.CreateSupplier(ctx, e.managerA, e.boutiqueA, core.SupplierInput{Name: "Grossiste " + product.Name})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	order, err := e.orders.CreateOrder(ctx, e.managerA, e.boutiqueA, core.OrderInput{
		SupplierID: supplier.ID,
		Lines:      []core.OrderLineInput{{ProductID: product.ID, Quantity: qty, UnitPrice: dec(unitPrice)}},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return order
}

func TestReceiveOrder_PartialThenComplete(t *testing.T) {
	e := setupTestDB(t)
	ctx := context.Background()
	p := e.newProduct(t, "Ciment", 0, "15")
	order := e.newOrder(t, p, 50, "10")

	if order.Number != "CMD001" || order.Status != core.OrderPending || !order.AmountTotal.Equal(dec("500")) {
		t.Fatalf("unexpected order: %s %s %s", order.Number, order.Status, order.AmountTotal)
	}
	lineID := order.Lines[0].ID

	got, err := e.orders.ReceiveOrder(ctx, e.managerA, order.ID, core.ReceptionInput{
		Lines: []core.ReceivedLine{{OrderLineID: lineID, QuantityReceived: 30}},
	})
	if err != nil {
		t.Fatalf("first ReceiveOrder: %v", err)
	}
	if got.Lines[0].QuantityReceived != 30 || got.Status != core.OrderInProgress {
		t.Errorf("after 30: received=%d status=%s", got.Lines[0].QuantityReceived, got.Status)
	}
	if s := e.stockOf(t, p.ID); s != 30 {
		t.Errorf("expected stock 30, got %d", s)
	}

	got, err = e.orders.ReceiveOrder(ctx, e.managerA, order.ID, core.ReceptionInput{
		Lines: []core.ReceivedLine{{OrderLineID: lineID, QuantityReceived: 20}},
	})
	if err != nil {
		t.Fatalf("second ReceiveOrder: %v", err)
	}
	if got.Lines[0].QuantityReceived != 50 || got.Status != core.OrderReceived || got.ReceivedAt == nil {
		t.Errorf("after 50: received=%d status=%s", got.Lines[0].QuantityReceived, got.Status)
	}
	if s := e.stockOf(t, p.ID); s != 50 {
		t.Errorf("expected stock 50, got %d", s)
	}
	if n := e.count(t, "SELECT COUNT(*) FROM stock_movements WHERE reason = 'Réception commande CMD001 - Ciment'"); n != 2 {
		t.Errorf("expected 2 reception movements, got %d", n)
	}

	_, err = e.orders.ReceiveOrder(ctx, e.managerA, order.ID, core.ReceptionInput{CancelRemainder: true})
	if !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected closed order to be a conflict, got %v", err)
	}
	e.assertConsistent(t)
}

func TestReceiveOrder_CancelRemainderShrinksOrder(t *testing.T) {
	e := setupTestDB(t)
	ctx := context.Background()
	p := e.newProduct(t, "Tôle", 0, "20")
	order := e.newOrder(t, p, 50, "10")

	if _, err := e.orders.ReceiveOrder(ctx, e.managerA, order.ID, core.ReceptionInput{
		Lines: []core.ReceivedLine{{OrderLineID: order.Lines[0].ID, QuantityReceived: 30}},
	}); err != nil {
		t.Fatalf("ReceiveOrder: %v", err)
	}

	got, err := e.orders.ReceiveOrder(ctx, e.managerA, order.ID, core.ReceptionInput{CancelRemainder: true})
	if err != nil {
		t.Fatalf("ReceiveOrder(cancelRemainder): %v", err)
	}
	line := got.Lines[0]
	if line.Quantity != 30 || !line.Subtotal.Equal(dec("300")) {
		t.Errorf("expected line clamped to 30 / 300, got %d / %s", line.Quantity, line.Subtotal)
	}
	if !got.AmountTotal.Equal(dec("300")) || got.Status != core.OrderReceived {
		t.Errorf("expected total 300 RECEIVED, got %s %s", got.AmountTotal, got.Status)
	}
	if s := e.stockOf(t, p.ID); s != 30 {
		t.Errorf("expected stock 30, got %d", s)
	}
	e.assertConsistent(t)
}

func TestReceiveOrder_FailuresAreAtomic(t *testing.T) {
	e := setupTestDB(t)
	ctx := context.Background()
	p := e.newProduct(t, "Peinture", 0, "30")
	order := e.newOrder(t, p, 10, "12")
	lineID := order.Lines[0].ID

	_, err := e.orders.ReceiveOrder(ctx, e.managerA, order.ID, core.ReceptionInput{
		Lines: []core.ReceivedLine{{OrderLineID: lineID, QuantityReceived: 5}, {OrderLineID: 9999, QuantityReceived: 1}},
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected unknown line to be NotFound, got %v", err)
	}
	if s := e.stockOf(t, p.ID); s != 0 {
		t.Errorf("stock must be untouched, got %d", s)
	}

	_, err = e.orders.ReceiveOrder(ctx, e.managerA, order.ID, core.ReceptionInput{
		Lines: []core.ReceivedLine{{OrderLineID: lineID, QuantityReceived: 11}},
	})
	var ore *core.OverReceiptError
	if !errors.As(err, &ore) || ore.Ordered != 10 || ore.Attempted != 11 {
		t.Fatalf("expected OverReceiptError, got %v", err)
	}

	got, err := e.orders.GetOrder(ctx, e.managerA, order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Lines[0].QuantityReceived != 0 || got.Status != core.OrderPending {
		t.Errorf("order must be untouched, got received=%d status=%s", got.Lines[0].QuantityReceived, got.Status)
	}
}

func TestPayOrder_AndCancel(t *testing.T) {
	e := setupTestDB(t)
	ctx := context.Background()
	p := e.newProduct(t, "Clous", 0, "1")
	order := e.newOrder(t, p, 100, "0.50")

	got, err := e.orders.PayOrder(ctx, e.managerA, order.ID, dec("20"), "")
	if err != nil {
		t.Fatalf("PayOrder: %v", err)
	}
	if !got.AmountPaid.Equal(dec("20")) || !got.AmountRemaining.Equal(dec("30")) || got.PaymentStatus != core.StatusPartial {
		t.Errorf("unexpected amounts: paid=%s remaining=%s status=%s", got.AmountPaid, got.AmountRemaining, got.PaymentStatus)
	}
	if _, err := e.orders.PayOrder(ctx, e.managerA, order.ID, dec("31"), ""); !errors.Is(err, core.ErrOverpayment) {
		t.Errorf("expected ErrOverpayment, got %v", err)
	}
	if n := e.count(t, "SELECT COUNT(*) FROM transactions WHERE purchase_order_id = $1 AND type = 'PURCHASE'", order.ID); n != 1 {
		t.Errorf("expected 1 PURCHASE transaction, got %d", n)
	}

	// Receiving 30 then cancelling the remainder would shrink the total to 15 < 20 paid.
	if _, err := e.orders.ReceiveOrder(ctx, e.managerA, order.ID, core.ReceptionInput{
		Lines:           []core.ReceivedLine{{OrderLineID: order.Lines[0].ID, QuantityReceived: 30}},
		CancelRemainder: true,
	}); !errors.Is(err, core.ErrOverpayment) {
		t.Errorf("expected ErrOverpayment when shrinking below paid, got %v", err)
	}

	if _, err := e.orders.CancelOrder(ctx, e.managerA, order.ID); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if _, err := e.orders.PayOrder(ctx, e.managerA, order.ID, dec("1"), ""); !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected paying a cancelled order to conflict, got %v", err)
	}
}
