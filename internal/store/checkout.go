package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/toolshub/internal/model"
)

type CheckoutStore struct {
	db *sql.DB
}

func NewCheckoutStore(db *sql.DB) *CheckoutStore {
	return &CheckoutStore{db: db}
}

func scanCheckout(scanner interface{ Scan(...any) error }) (*model.CheckoutSession, error) {
	var c model.CheckoutSession
	var stripeID sql.NullString
	err := scanner.Scan(
		&c.ID, &c.Reference, &stripeID, &c.ListingID, &c.RenterID,
		&c.AmountCents, &c.FeeCents, &c.Status, &c.PaymentIntentID,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if stripeID.Valid {
		c.StripeSessionID = &stripeID.String
	}
	return &c, nil
}

const checkoutCols = `id, reference, stripe_session_id, listing_id, renter_id, amount_cents, fee_cents, status, payment_intent_id, created_at, updated_at`

// Create records a pending checkout attempt under a fresh reference.
func (s *CheckoutStore) Create(listingID, renterID, amountCents, feeCents int64) (*model.CheckoutSession, error) {
	result, err := s.db.Exec(
		`INSERT INTO checkout_sessions (reference, listing_id, renter_id, amount_cents, fee_cents) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), listingID, renterID, amountCents, feeCents,
	)
	if err != nil {
		return nil, fmt.Errorf("insert checkout session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *CheckoutStore) GetByID(id int64) (*model.CheckoutSession, error) {
	return s.get(`id = ?`, id)
}

func (s *CheckoutStore) GetByReference(ref string) (*model.CheckoutSession, error) {
	return s.get(`reference = ?`, ref)
}

func (s *CheckoutStore) GetByStripeSessionID(stripeSessionID string) (*model.CheckoutSession, error) {
	return s.get(`stripe_session_id = ?`, stripeSessionID)
}

func (s *CheckoutStore) get(cond string, arg any) (*model.CheckoutSession, error) {
	row := s.db.QueryRow(`SELECT `+checkoutCols+` FROM checkout_sessions WHERE `+cond, arg)
	c, err := scanCheckout(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	return c, nil
}

func (s *CheckoutStore) SetStripeSessionID(id int64, stripeSessionID string) error {
	_, err := s.db.Exec(`UPDATE checkout_sessions SET stripe_session_id = ? WHERE id = ?`, stripeSessionID, id)
	if err != nil {
		return fmt.Errorf("set stripe session id: %w", err)
	}
	return nil
}

// Complete marks an open attempt completed and subscribes the renter in one
// transaction. An attempt is open while pending or expired, since Stripe may
// report a payment after the stale sweep ran. It returns ErrNotPending if the
// attempt was already completed or refunded,
// and ErrListingFull or ErrListingInactive if no slot could be taken, in which
// case nothing is written.
func (s *CheckoutStore) Complete(id int64, paymentIntentID string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var listingID, renterID int64
	err = tx.QueryRow(
		`UPDATE checkout_sessions SET status = ?, payment_intent_id = ?
		 WHERE id = ? AND status IN (?, ?) RETURNING listing_id, renter_id`,
		model.CheckoutStatusCompleted, paymentIntentID, id,
		model.CheckoutStatusPending, model.CheckoutStatusExpired,
	).Scan(&listingID, &renterID)
	if err == sql.ErrNoRows {
		return 0, ErrNotPending
	}
	if err != nil {
		return 0, fmt.Errorf("complete checkout session: %w", err)
	}

	rentalID, err := subscribeTx(tx, listingID, renterID, paymentIntentID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return rentalID, nil
}

// Settle moves an open attempt to status without subscribing. Settling an
// expired attempt as expired again returns ErrNotPending.
func (s *CheckoutStore) Settle(id int64, status model.CheckoutStatus, paymentIntentID string) error {
	result, err := s.db.Exec(
		`UPDATE checkout_sessions SET status = ?, payment_intent_id = COALESCE(NULLIF(?, ''), payment_intent_id)
		 WHERE id = ? AND status IN (?, ?) AND status != ?`,
		status, paymentIntentID, id,
		model.CheckoutStatusPending, model.CheckoutStatusExpired, status,
	)
	if err != nil {
		return fmt.Errorf("settle checkout session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotPending
	}
	return nil
}

// ExpireStale marks pending attempts older than age as expired. Expired
// attempts can still be completed by a late payment.
func (s *CheckoutStore) ExpireStale(age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age).Format(sqliteTime)
	result, err := s.db.Exec(
		`UPDATE checkout_sessions SET status = ? WHERE status = ? AND created_at < ?`,
		model.CheckoutStatusExpired, model.CheckoutStatusPending, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("expire stale checkout sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
