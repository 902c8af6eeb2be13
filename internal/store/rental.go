package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/toolshub/internal/model"
)

// Sealer encrypts credentials before they reach the database.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(ciphertext string) (string, error)
}

type RentalStore struct {
	db     *sql.DB
	sealer Sealer
}

func NewRentalStore(db *sql.DB, sealer Sealer) *RentalStore {
	return &RentalStore{db: db, sealer: sealer}
}

func (s *RentalStore) scanRental(scanner interface{ Scan(...any) error }) (*model.RentedTool, error) {
	var r model.RentedTool
	var loginEnc, passwordEnc sql.NullString
	var active int
	err := scanner.Scan(
		&r.ID, &r.ListingID, &r.RenterID, &r.RenterEmail, &r.OwnerID,
		&r.ToolName, &r.PlanName, &r.ImageURL, &r.Price,
		&loginEnc, &passwordEnc, &active,
		&r.PaymentIntentID, &r.PaymentStatus, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.IsActive = active != 0
	if r.Login, err = s.open(loginEnc); err != nil {
		return nil, fmt.Errorf("decrypt login: %w", err)
	}
	if r.Password, err = s.open(passwordEnc); err != nil {
		return nil, fmt.Errorf("decrypt password: %w", err)
	}
	return &r, nil
}

func (s *RentalStore) open(v sql.NullString) (*string, error) {
	if !v.Valid {
		return nil, nil
	}
	plain, err := s.sealer.Open(v.String)
	if err != nil {
		return nil, err
	}
	return &plain, nil
}

const rentalSelect = `SELECT r.id, r.listing_id, r.renter_id, u.email, l.owner_id,
	t.name, p.name, t.image_url, l.price,
	r.login_enc, r.password_enc, l.is_active,
	r.payment_intent_id, r.payment_status, r.created_at, r.updated_at
	FROM rented_tools r
	JOIN listings l ON l.id = r.listing_id
	JOIN users u ON u.id = r.renter_id
	JOIN tools t ON t.id = l.tool_id
	JOIN tool_plans p ON p.id = l.plan_id`

func (s *RentalStore) GetByID(id int64) (*model.RentedTool, error) {
	row := s.db.QueryRow(rentalSelect+` WHERE r.id = ?`, id)
	r, err := s.scanRental(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rental: %w", err)
	}
	return r, nil
}

// ListByRenter returns the renter's rentals matching f, newest first.
func (s *RentalStore) ListByRenter(renterID int64, f model.RentedFilter) ([]model.RentedTool, error) {
	query := rentalSelect + ` WHERE r.renter_id = ?`
	args := []any{renterID}
	if f.ToolName != nil && *f.ToolName != "" {
		query += ` AND t.name LIKE ?`
		args = append(args, "%"+*f.ToolName+"%")
	}
	if f.MinPrice != nil {
		query += ` AND l.price >= ?`
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		query += ` AND l.price <= ?`
		args = append(args, *f.MaxPrice)
	}
	return s.list(query+` ORDER BY r.id DESC`, args...)
}

// ListByOwner returns rentals of every listing owned by ownerID, newest first.
func (s *RentalStore) ListByOwner(ownerID int64) ([]model.RentedTool, error) {
	return s.list(rentalSelect+` WHERE l.owner_id = ? ORDER BY r.id DESC`, ownerID)
}

func (s *RentalStore) list(query string, args ...any) ([]model.RentedTool, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rentals: %w", err)
	}
	defer rows.Close()

	rentals := []model.RentedTool{}
	for rows.Next() {
		r, err := s.scanRental(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rental: %w", err)
		}
		rentals = append(rentals, *r)
	}
	return rentals, rows.Err()
}

// UpdateCredentials sets the login and password of a rental. Only the owner
// of the parent listing may do so.
func (s *RentalStore) UpdateCredentials(id, ownerID int64, login, password string) (*model.RentedTool, error) {
	var owner int64
	err := s.db.QueryRow(
		`SELECT l.owner_id FROM rented_tools r JOIN listings l ON l.id = r.listing_id WHERE r.id = ?`, id,
	).Scan(&owner)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rental owner: %w", err)
	}
	if owner != ownerID {
		return nil, ErrForbidden
	}

	loginEnc, err := s.sealer.Seal(login)
	if err != nil {
		return nil, fmt.Errorf("encrypt login: %w", err)
	}
	passwordEnc, err := s.sealer.Seal(password)
	if err != nil {
		return nil, fmt.Errorf("encrypt password: %w", err)
	}

	if _, err := s.db.Exec(
		`UPDATE rented_tools SET login_enc = ?, password_enc = ? WHERE id = ?`,
		loginEnc, passwordEnc, id,
	); err != nil {
		return nil, fmt.Errorf("update credentials: %w", err)
	}
	return s.GetByID(id)
}

// Subscribe records a paid rental, taking one slot of the listing.
func (s *RentalStore) Subscribe(listingID, renterID int64, paymentIntentID string) (*model.RentedTool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id, err := subscribeTx(tx, listingID, renterID, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

// subscribeTx increments subscribed_users only while capacity remains and
// inserts the rental row in the same transaction.
func subscribeTx(tx *sql.Tx, listingID, renterID int64, paymentIntentID string) (int64, error) {
	result, err := tx.Exec(
		`UPDATE listings SET subscribed_users = subscribed_users + 1
		 WHERE id = ? AND is_active = 1 AND (unlimited_users = 1 OR subscribed_users < total_users)`,
		listingID,
	)
	if err != nil {
		return 0, fmt.Errorf("take slot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		var active int
		err := tx.QueryRow(`SELECT is_active FROM listings WHERE id = ?`, listingID).Scan(&active)
		switch {
		case err == sql.ErrNoRows:
			return 0, ErrNotFound
		case err != nil:
			return 0, fmt.Errorf("get listing: %w", err)
		case active == 0:
			return 0, ErrListingInactive
		default:
			return 0, ErrListingFull
		}
	}

	result, err = tx.Exec(
		`INSERT INTO rented_tools (listing_id, renter_id, payment_intent_id, payment_status) VALUES (?, ?, ?, 'paid')`,
		listingID, renterID, paymentIntentID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert rental: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}
