package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/toolshub/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var connectID sql.NullString
	err := scanner.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &connectID, &u.ConnectStatus, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if connectID.Valid {
		u.StripeConnectAccountID = &connectID.String
	}
	return &u, nil
}

const userCols = `id, email, name, password_hash, stripe_connect_account_id, connect_status, created_at, updated_at`

func (s *UserStore) Create(email, name, passwordHash string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (email, name, password_hash) VALUES (?, ?, ?)`,
		strings.ToLower(strings.TrimSpace(email)), name, passwordHash,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByConnectAccountID(accountID string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE stripe_connect_account_id = ?`, accountID)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by connect account: %w", err)
	}
	return u, nil
}

// SetConnectAccount stores the user's Connect account id and onboarding status.
func (s *UserStore) SetConnectAccount(id int64, accountID string, status model.ConnectStatus) (*model.User, error) {
	result, err := s.db.Exec(
		`UPDATE users SET stripe_connect_account_id = ?, connect_status = ? WHERE id = ?`,
		accountID, status, id,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("connect account already linked to another user")
		}
		return nil, fmt.Errorf("set connect account: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(id)
}

// MarkConnectValidated promotes a pending account to validated. It reports
// whether a row changed.
func (s *UserStore) MarkConnectValidated(accountID string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE users SET connect_status = ? WHERE stripe_connect_account_id = ? AND connect_status != ?`,
		model.ConnectStatusValidated, accountID, model.ConnectStatusValidated,
	)
	if err != nil {
		return false, fmt.Errorf("mark connect validated: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *UserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
