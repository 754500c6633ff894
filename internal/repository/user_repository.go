package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/detailing-booking/internal/model"
)

// UserRepo reads and writes accounts together with their customer
// profile.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewAccount carries the fields needed to open an account.  The
// password must already be hashed.
type NewAccount struct {
	Email         string
	PasswordHash  string
	Role          string
	FullName      string
	Phone         string
	EmailVerified bool
}

// Create inserts the user and its profile in one transaction and
// returns the new ID.  An existing email yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, a NewAccount) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(a.Email))
	role := a.Role
	if role == "" {
		role = model.RoleCustomer
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, email_verified) VALUES (?,?,?,?)",
		email, a.PasswordHash, role, a.EmailVerified)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	var phone any
	if a.Phone != "" {
		phone = a.Phone
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO customer_profiles (user_id, full_name, phone) VALUES (?,?,?)",
		id, a.FullName, phone); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return uint64(id), nil
}

const userSelect = `SELECT u.id, u.email, u.password_hash, u.role, u.email_verified, u.is_active,
	u.created_at, u.updated_at, COALESCE(p.full_name, ''), COALESCE(p.phone, '')
	FROM users u LEFT JOIN customer_profiles p ON p.user_id = u.id`

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.EmailVerified, &u.IsActive,
		&u.CreatedAt, &u.UpdatedAt, &u.FullName, &u.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx, userSelect+" WHERE u.email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, userSelect+" WHERE u.id=? LIMIT 1", id))
}
