package store

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/dukerupert/toolshub/internal/database"
	"github.com/dukerupert/toolshub/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// prefixSealer is a reversible stand-in for the AES vault.
type prefixSealer struct{}

func (prefixSealer) Seal(p string) (string, error) { return "sealed:" + p, nil }

func (prefixSealer) Open(c string) (string, error) {
	if !strings.HasPrefix(c, "sealed:") {
		return "", errors.New("not sealed")
	}
	return strings.TrimPrefix(c, "sealed:"), nil
}

type fixture struct {
	db       *sql.DB
	users    *UserStore
	tools    *ToolStore
	listings *ListingStore
	rentals  *RentalStore
	checkout *CheckoutStore
	owner    *model.User
	renter   *model.User
	tool     *model.Tool
	plan     *model.ToolPlan
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	f := &fixture{
		db:       db,
		users:    NewUserStore(db),
		tools:    NewToolStore(db),
		listings: NewListingStore(db),
		rentals:  NewRentalStore(db, prefixSealer{}),
		checkout: NewCheckoutStore(db),
	}

	var err error
	if f.owner, err = f.users.Create("owner@example.com", "Olive", "hash"); err != nil {
		t.Fatalf("create owner: %v", err)
	}
	if f.renter, err = f.users.Create("renter@example.com", "Ray", "hash"); err != nil {
		t.Fatalf("create renter: %v", err)
	}
	if f.tool, err = f.tools.Create("Miro", "https://example.com/miro.png"); err != nil {
		t.Fatalf("create tool: %v", err)
	}
	if f.plan, err = f.tools.CreatePlan(f.tool.ID, "Team", 5, 8); err != nil {
		t.Fatalf("create plan: %v", err)
	}
	return f
}

func (f *fixture) createListing(t *testing.T, total int, unlimited bool) *model.Listing {
	t.Helper()
	l, err := f.listings.Create(f.owner.ID, model.NewListing{
		ToolID:         f.tool.ID,
		PlanID:         f.plan.ID,
		Price:          12.5,
		TotalUsers:     total,
		UnlimitedUsers: unlimited,
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return l
}
