package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/toolshub/internal/model"
)

type ListingStore struct {
	db *sql.DB
}

func NewListingStore(db *sql.DB) *ListingStore {
	return &ListingStore{db: db}
}

func scanListing(scanner interface{ Scan(...any) error }) (*model.Listing, error) {
	var l model.Listing
	var unlimited, active int
	err := scanner.Scan(
		&l.ID, &l.OwnerID, &l.OwnerName, &l.ToolID, &l.ToolName, &l.ImageURL,
		&l.PlanID, &l.PlanName, &l.Price, &l.TotalUsers, &unlimited,
		&l.SubscribedUsers, &active, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.UnlimitedUsers = unlimited != 0
	l.IsActive = active != 0
	return &l, nil
}

const listingSelect = `SELECT l.id, l.owner_id, u.name, l.tool_id, t.name, t.image_url,
	l.plan_id, p.name, l.price, l.total_users, l.unlimited_users,
	l.subscribed_users, l.is_active, l.created_at, l.updated_at
	FROM listings l
	JOIN users u ON u.id = l.owner_id
	JOIN tools t ON t.id = l.tool_id
	JOIN tool_plans p ON p.id = l.plan_id`

// Create inserts a listing for ownerID. An unlimited listing always stores
// total_users = 0.
func (s *ListingStore) Create(ownerID int64, nl model.NewListing) (*model.Listing, error) {
	totalUsers := nl.TotalUsers
	var unlimited int
	if nl.UnlimitedUsers {
		totalUsers = 0
		unlimited = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO listings (owner_id, tool_id, plan_id, price, total_users, unlimited_users) VALUES (?, ?, ?, ?, ?, ?)`,
		ownerID, nl.ToolID, nl.PlanID, nl.Price, totalUsers, unlimited,
	)
	if err != nil {
		return nil, fmt.Errorf("insert listing: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ListingStore) GetByID(id int64) (*model.Listing, error) {
	row := s.db.QueryRow(listingSelect+` WHERE l.id = ?`, id)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

// List returns active listings plus the viewer's own inactive ones, newest
// first, along with the total number of matches before pagination.
func (s *ListingStore) List(viewerID int64, f model.ListingFilter) ([]model.Listing, int, error) {
	where := []string{`(l.is_active = 1 OR l.owner_id = ?)`}
	args := []any{viewerID}

	if f.ToolID != nil {
		where = append(where, `l.tool_id = ?`)
		args = append(args, *f.ToolID)
	}
	if f.OwnerID != nil {
		where = append(where, `l.owner_id = ?`)
		args = append(args, *f.OwnerID)
	}
	if f.PlanID != nil {
		where = append(where, `l.plan_id = ?`)
		args = append(args, *f.PlanID)
	}
	if f.MinPrice != nil {
		where = append(where, `l.price >= ?`)
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, `l.price <= ?`)
		args = append(args, *f.MaxPrice)
	}
	if f.UnlimitedUsers != nil {
		where = append(where, `l.unlimited_users = ?`)
		args = append(args, boolInt(*f.UnlimitedUsers))
	}
	clause := ` WHERE ` + strings.Join(where, ` AND `)

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM listings l`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}

	query := listingSelect + clause + ` ORDER BY l.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, max(f.Offset, 0))
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	listings := []model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, *l)
	}
	return listings, total, rows.Err()
}

// ToggleActive flips is_active on a listing owned by ownerID and returns the
// new value.
func (s *ListingStore) ToggleActive(id, ownerID int64) (bool, error) {
	var owner int64
	err := s.db.QueryRow(`SELECT owner_id FROM listings WHERE id = ?`, id).Scan(&owner)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("get listing owner: %w", err)
	}
	if owner != ownerID {
		return false, ErrForbidden
	}

	var active int
	err = s.db.QueryRow(
		`UPDATE listings SET is_active = 1 - is_active WHERE id = ? AND owner_id = ? RETURNING is_active`,
		id, ownerID,
	).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("toggle listing: %w", err)
	}
	return active != 0, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
