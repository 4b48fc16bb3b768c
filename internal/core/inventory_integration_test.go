package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Drasasse/gestion-commerce-sub001/internal/core"
)

func TestAdjustStock_ManualCorrections(t *testing.T) {
	e := setupTestDB(t)
	ctx := context.Background()
	p := e.newProduct(t, "Chemise lin", 3, "25")

	if _, err := e.inventory.AdjustStock(ctx, e.managerA, p.ID, core.MovementOut, 4, "Casse"); !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if _, err := e.inventory.AdjustStock(ctx, e.managerA, p.ID, core.MovementIn, 2, "   "); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank reason, got %v", err)
	}
	if _, err := e.inventory.AdjustStock(ctx, e.managerB, p.ID, core.MovementIn, 2, "Inventaire"); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized from another boutique, got %v", err)
	}
	if s := e.stockOf(t, p.ID); s != 3 {
		t.Fatalf("rejected adjustments changed stock to %d", s)
	}

	m, err := e.inventory.AdjustStock(ctx, e.managerA, p.ID, core.MovementIn, 2, "Inventaire")
	if err != nil {
		t.Fatalf("AdjustStock IN: %v", err)
	}
	if m.Kind != core.MovementIn || m.Quantity != 2 || m.Reason != "Inventaire" {
		t.Errorf("unexpected movement: %+v", m)
	}
	if _, err := e.inventory.AdjustStock(ctx, e.managerA, p.ID, core.MovementOut, 5, "Démarque"); err != nil {
		t.Fatalf("AdjustStock OUT of whole stock: %v", err)
	}
	if s := e.stockOf(t, p.ID); s != 0 {
		t.Errorf("expected stock 0, got %d", s)
	}

	// Initial stock, manual IN, manual OUT.
	all, err := e.inventory.ListMovements(ctx, e.managerA, e.boutiqueA, core.MovementFilter{ProductID: &p.ID})
	if err != nil {
		t.Fatalf("ListMovements: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 movements, got %d: %+v", len(all), all)
	}

	in := core.MovementIn
	ins, err := e.inventory.ListMovements(ctx, e.managerA, e.boutiqueA, core.MovementFilter{ProductID: &p.ID, Kind: &in})
	if err != nil {
		t.Fatalf("ListMovements IN: %v", err)
	}
	if len(ins) != 2 {
		t.Errorf("expected 2 IN movements, got %d", len(ins))
	}

	tomorrow := time.Now().AddDate(0, 0, 1)
	future, err := e.inventory.ListMovements(ctx, e.managerA, e.boutiqueA, core.MovementFilter{
		ProductID: &p.ID,
		DateRange: core.DateRange{From: &tomorrow},
	})
	if err != nil {
		t.Fatalf("ListMovements from tomorrow: %v", err)
	}
	if len(future) != 0 {
		t.Errorf("expected no movement from tomorrow on, got %d", len(future))
	}
	e.assertConsistent(t)
}

func TestAdjustStock_ScopedAdminSeesOnlyThatBoutique(t *testing.T) {
	e := setupTestDB(t)
	ctx := context.Background()
	p := e.newProduct(t, "Bracelet", 4, "12")

	_, err := e.inventory.AdjustStock(ctx, e.admin.Within(e.boutiqueB), p.ID, core.MovementIn, 1, "Inventaire")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound through boutique B, got %v", err)
	}
	if _, err := e.inventory.AdjustStock(ctx, e.admin.Within(e.boutiqueA), p.ID, core.MovementIn, 1, "Inventaire"); err != nil {
		t.Fatalf("AdjustStock through boutique A: %v", err)
	}
	if s := e.stockOf(t, p.ID); s != 5 {
		t.Errorf("expected stock 5, got %d", s)
	}
}
