package registry

import (
	"errors"
	"testing"

	"pallet-backend/internal/models"
	"pallet-backend/internal/testutil"
)

func TestResolve(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedGroup(t, db, "Oak 120x80", "LI-100")
	testutil.SeedGroup(t, db, "Pine 100x100", "")
	if err := CreateGroup(db, &models.PalletGroup{Name: "Retired", LineItem: "LI-OLD", Active: false}); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"Oak 120x80", "Oak 120x80", false},
		{"  oak   120X80 ", "Oak 120x80", false},
		{"li-100", "Oak 120x80", false},
		{"pine 100x100", "Pine 100x100", false},
		{"Retired", "", true},
		{"LI-OLD", "", true},
		{"", "", true},
		{"unknown", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Resolve(db, tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrGroupNotFound) {
					t.Fatalf("Expected ErrGroupNotFound, got %q %v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}

	active, _ := IsActive(db, "Retired")
	if active {
		t.Error("Expected Retired to be inactive")
	}
	active, _ = IsActive(db, "Oak 120x80")
	if !active {
		t.Error("Expected Oak 120x80 to be active")
	}
}

func TestCreateGroup_DuplicateLineItem(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedGroup(t, db, "G1", "LI-1")

	err := CreateGroup(db, &models.PalletGroup{Name: "G2", LineItem: "li-1", Active: true})
	if !errors.Is(err, ErrDuplicateGroup) {
		t.Fatalf("Expected ErrDuplicateGroup, got %v", err)
	}
}

func TestRename_CascadesToReferences(t *testing.T) {
	db := testutil.SetupTestDB(t)
	wh := testutil.SeedWarehouse(t, db, "Main", true)
	testutil.SeedGroup(t, db, "Old", "LI-1")
	testutil.SeedGroup(t, db, "Taken", "")
	testutil.SeedStock(t, db, wh.ID, "Old", 4)
	db.Create(&models.Reservation{OrderNumber: "ORD-0001", WarehouseID: wh.ID, GroupName: "Old", Tier: models.TierPrimary, Qty: 2})
	db.Create(&models.OrderLine{OrderID: 1, GroupName: "Old", Qty: 2})

	if _, err := Rename(db, "Old", "Taken"); !errors.Is(err, ErrDuplicateGroup) {
		t.Fatalf("Expected ErrDuplicateGroup, got %v", err)
	}

	n, err := Rename(db, "Old", "New")
	if err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 referencing rows updated, got %d", n)
	}
	if got := testutil.StockOf(t, db, wh.ID, "New"); got != 4 {
		t.Errorf("Expected stock moved to new name, got %d", got)
	}
	var res models.Reservation
	db.First(&res)
	if res.GroupName != "New" {
		t.Errorf("Expected reservation renamed, got %q", res.GroupName)
	}
	if _, err := Resolve(db, "Old"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("Old name should no longer resolve")
	}
}

func TestPaired(t *testing.T) {
	t.Run("primary pairs with first non-primary", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		main := testutil.SeedWarehouse(t, db, "Main", true)
		other := testutil.SeedWarehouse(t, db, "Other", false)
		testutil.SeedWarehouse(t, db, "Third", false)

		p, err := Paired(db, main.ID)
		if err != nil || p == nil || *p != other.ID {
			t.Fatalf("Expected %d, got %v %v", other.ID, p, err)
		}
		p, _ = Paired(db, other.ID)
		if p == nil || *p != main.ID {
			t.Fatalf("Expected non-primary to pair with %d, got %v", main.ID, p)
		}
	})

	t.Run("explicit pair wins", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		main := testutil.SeedWarehouse(t, db, "Main", true)
		testutil.SeedWarehouse(t, db, "Other", false)
		third := testutil.SeedWarehouse(t, db, "Third", false)
		db.Model(&main).Update("paired_warehouse_id", third.ID)

		p, _ := Paired(db, main.ID)
		if p == nil || *p != third.ID {
			t.Fatalf("Expected explicit pair %d, got %v", third.ID, p)
		}
	})

	t.Run("no primary flag falls back to any other", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		a := testutil.SeedWarehouse(t, db, "A", false)
		b := testutil.SeedWarehouse(t, db, "B", false)

		p, _ := Paired(db, b.ID)
		if p == nil || *p != a.ID {
			t.Fatalf("Expected %d, got %v", a.ID, p)
		}
	})

	t.Run("single warehouse has no pair", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		a := testutil.SeedWarehouse(t, db, "A", true)

		p, err := Paired(db, a.ID)
		if err != nil || p != nil {
			t.Fatalf("Expected nil pair, got %v %v", p, err)
		}
		scope, _ := Scope(db, a.ID)
		if len(scope) != 1 {
			t.Errorf("Expected scope of 1, got %v", scope)
		}
	})

	t.Run("unknown warehouse", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		if _, err := Paired(db, 99); !errors.Is(err, ErrWarehouseNotFound) {
			t.Fatalf("Expected ErrWarehouseNotFound, got %v", err)
		}
	})
}
