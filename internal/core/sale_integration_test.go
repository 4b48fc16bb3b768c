package core_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/Drasasse/gestion-commerce-sub001/internal/core"
)

func TestCreateSale_SellsEntireStock(t *testing.T) {
	e := setupTestDB(t)
	ctx := context.Background()
	p := e.newProduct(t, "Riz 25kg", 10, "100")

	sale, err := e.sales.CreateSale(ctx, e.managerA, e.boutiqueA, core.SaleInput{
		Lines: []core.SaleLineInput{{ProductID: p.ID, Quantity: 10, UnitPrice: dec("100")}},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	if sale.Number != "V001" {
		t.Errorf("expected number V001, got %s", sale.Number)
	}
	if !sale.AmountTotal.Equal(dec("1000")) || !sale.AmountPaid.Equal(dec("1000")) || !sale.AmountRemaining.IsZero() {
		t.Errorf("unexpected amounts: total=%s paid=%s remaining=%s", sale.AmountTotal, sale.AmountPaid, sale.AmountRemaining)
	}
	if sale.Status != core.StatusPaid {
		t.Errorf("expected PAID, got %s", sale.Status)
	}
	if len(sale.Lines) != 1 || len(sale.Payments) != 1 {
		t.Fatalf("expected 1 line and 1 payment, got %d and %d", len(sale.Lines), len(sale.Payments))
	}
	if got := e.stockOf(t, p.ID); got != 0 {
		t.Errorf("expected stock 0, got %d", got)
	}

	movements, err := e.inventory.ListMovements(ctx, e.managerA, e.boutiqueA, core.MovementFilter{ProductID: &p.ID})
	if err != nil {
		t.Fatalf("ListMovements: %v", err)
	}
	var out []core.StockMovement
	for _, m := range movements {
		if m.Kind == core.MovementOut {
			out = append(out, m)
		}
	}
	if len(out) != 1 || out[0].Quantity != 10 || out[0].Reason != "Vente V001" || out[0].SaleID == nil || *out[0].SaleID != sale.ID {
		t.Errorf("unexpected OUT movements: %+v", out)
	}

	if n := e.count(t, "SELECT COUNT(*) FROM transactions WHERE sale_id = $1 AND type = 'SALE'", sale.ID); n != 1 {
		t.Errorf("expected 1 SALE transaction, got %d", n)
	}
	e.assertConsistent(t)
}

func TestCreateSale_InsufficientStockLeavesNothingBehind(t *testing.T) {
	e := setupTestDB(t)
	ctx := context.Background()
	p := e.newProduct(t, "Huile 5L", 10, "100")
	other := e.newProduct(t, "Sucre 1kg", 50, "10")

	_, err := e.sales.CreateSale(ctx, e.managerA, e.boutiqueA, core.SaleInput{
		Lines: []core.SaleLineInput{
			{ProductID: other.ID, Quantity: 5},
			{ProductID: p.ID, Quantity: 11, UnitPrice: dec("100")},
		},
	})

	var ise *core.InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if ise.Available != 10 || ise.Requested != 11 {
		t.Errorf("expected available=10 requested=11, got %+v", ise)
	}
	if got := e.stockOf(t, p.ID); got != 10 {
		t.Errorf("stock changed to %d", got)
	}
	if got := e.stockOf(t, other.ID); got != 50 {
		t.Errorf("stock of the valid line changed to %d", got)
	}
	if n := e.count(t, "SELECT COUNT(*) FROM sales"); n != 0 {
		t.Errorf("expected no sale, got %d", n)
	}
	if n := e.count(t, "SELECT COUNT(*) FROM stock_movements WHERE kind = 'OUT'"); n != 0 {
		t.Errorf("expected no OUT movement, got %d", n)
	}
}

func TestCreateSale_AggregatesLinesOfSameProduct(t *testing.T) {
	e := setupTestDB(t)
	p := e.newProduct(t, "Savon", 5, "2")

	_, err := e.sales.CreateSale(context.Background(), e.managerA, e.boutiqueA, core.SaleInput{
		Lines: []core.SaleLineInput{{ProductID: p.ID, Quantity: 3}, {ProductID: p.ID, Quantity: 3}},
	})
	var ise *core.InsufficientStockError
	if !errors.As(err, &ise) || ise.Requested != 6 {
		t.Fatalf("expected InsufficientStockError requesting 6, got %v", err)
	}
}

func TestCreateSale_RejectsOverpayment(t *testing.T) {
	e := setupTestDB(t)
	p := e.newProduct(t, "Lait", 5, "10")

	_, err := e.sales.CreateSale(context.Background(), e.managerA, e.boutiqueA, core.SaleInput{
		Lines:      []core.SaleLineInput{{ProductID: p.ID, Quantity: 1}},
		AmountPaid: decPtr("11"),
	})
	if !errors.Is(err, core.ErrOverpayment) {
		t.Fatalf("expected ErrOverpayment, got %v", err)
	}
}

func TestCreateSale_ConcurrentNumbersAreUnique(t *testing.T) {
	e := setupTestDB(t)
	p := e.newProduct(t, "Eau 1.5L", 100, "1")

	const n = 10
	var wg sync.WaitGroup
	numbers := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sale, err := e.sales.CreateSale(context.Background(), e.managerA, e.boutiqueA, core.SaleInput{
				Lines: []core.SaleLineInput{{ProductID: p.ID, Quantity: 1}},
			})
			if err != nil {
				errs <- err
				return
			}
			numbers <- sale.Number
		}()
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		t.Errorf("concurrent CreateSale: %v", err)
	}
	var got []string
	for num := range numbers {
		got = append(got, num)
	}
	sort.Strings(got)
	for i, num := range got {
		if want := core.FormatDocumentNumber("V", 3, int64(i+1)); num != want {
			t.Errorf("position %d: expected %s, got %s (all: %v)", i, want, num, got)
		}
	}
	if s := e.stockOf(t, p.ID); s != 100-n {
		t.Errorf("expected stock %d, got %d", 100-n, s)
	}
}

func TestCreateSale_ConcurrentSalesNeverOversell(t *testing.T) {
	e := setupTestDB(t)
	p := e.newProduct(t, "Parfum 50ml", 5, "40")

	const n = 10
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := e.sales.CreateSale(context.Background(), e.managerA, e.boutiqueA, core.SaleInput{
				Lines: []core.SaleLineInput{{ProductID: p.ID, Quantity: 1}},
			})
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var ok, short int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, core.ErrInsufficientStock):
			short++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 5 || short != 5 {
		t.Errorf("expected 5 sales and 5 stock refusals, got %d and %d", ok, short)
	}
	if s := e.stockOf(t, p.ID); s != 0 {
		t.Errorf("expected stock 0, got %d", s)
	}
	if m := e.count(t, `
		SELECT COUNT(*) FROM stock_movements m JOIN stocks s ON s.id = m.stock_id
		WHERE s.product_id = $1 AND m.kind = 'OUT'`, p.ID); m != 5 {
		t.Errorf("expected 5 OUT movements, got %d", m)
	}
	if n := e.count(t, "SELECT COUNT(*) FROM sales WHERE boutique_id = $1", e.boutiqueA); n != 5 {
		t.Errorf("expected 5 sales rows, got %d", n)
	}
	e.assertConsistent(t)
}

func TestCancelSale_RestoresStockAndRemovesSale(t *testing.T) {
	e := setupTestDB(t)
	ctx := context.Background()
	p := e.newProduct(t, "Farine", 20, "5")

	sale, err := e.sales.CreateSale(ctx, e.managerA, e.boutiqueA, core.SaleInput{
		Lines:      []core.SaleLineInput{{ProductID: p.ID, Quantity: 8}},
		AmountPaid: decPtr("10"),
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if _, err := e.payments.AddPayment(ctx, e.managerA, sale.ID, core.PaymentInput{Amount: dec("5")}); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}

	if err := e.sales.CancelSale(ctx, e.managerA, sale.ID); err != nil {
		t.Fatalf("CancelSale: %v", err)
	}

	if got := e.stockOf(t, p.ID); got != 20 {
		t.Errorf("expected stock restored to 20, got %d", got)
	}
	if _, err := e.sales.GetSale(ctx, e.managerA, sale.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected sale to be gone, got %v", err)
	}
	if n := e.count(t, "SELECT COUNT(*) FROM stock_movements WHERE reason = 'Annulation vente V001' AND kind = 'IN'"); n != 1 {
		t.Errorf("expected 1 restoring movement, got %d", n)
	}
	if n := e.count(t, "SELECT COUNT(*) FROM transactions"); n != 0 {
		t.Errorf("expected linked transactions to be removed, got %d", n)
	}
	if n := e.count(t, "SELECT COUNT(*) FROM payments"); n != 0 {
		t.Errorf("expected payments to be removed, got %d", n)
	}
}

func TestUpdateSale_ChangesClientOnly(t *testing.T) {
	e := setupTestDB(t)
	ctx := context.Background()
	p := e.newProduct(t, "Thé", 5, "3")
	client, err := e.clients.CreateClient(ctx, e.managerA, e.boutiqueA, core.ClientInput{Name: "Awa"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	sale, err := e.sales.CreateSale(ctx, e.managerA, e.boutiqueA, core.SaleInput{
		Lines: []core.SaleLineInput{{ProductID: p.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	updated, err := e.sales.UpdateSale(ctx, e.managerA, sale.ID, core.SaleUpdate{ClientID: &client.ID, Notes: "livraison"})
	if err != nil {
		t.Fatalf("UpdateSale: %v", err)
	}
	if updated.ClientName == nil || *updated.ClientName != "Awa" {
		t.Errorf("expected client Awa, got %v", updated.ClientName)
	}
	if !updated.AmountTotal.Equal(sale.AmountTotal) {
		t.Errorf("amounts must not change")
	}
}
