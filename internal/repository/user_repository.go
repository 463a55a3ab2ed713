package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/utils"
)

// UserRepo manages staff accounts stored inside a tenant's own database.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create hashes the password and inserts the user, returning its ID.
func (r *UserRepo) Create(ctx context.Context, username, password string, role model.Role, cost int) (int64, error) {
	if strings.TrimSpace(username) == "" {
		return 0, Invalid("username", "is required")
	}
	if len(password) < 6 {
		return 0, Invalid("password", "must be at least 6 characters")
	}
	if !role.Valid() || role == model.RoleSuperAdmin {
		return 0, Invalid("role", "must be admin or cashier")
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	return r.CreateHashed(ctx, username, hash, role)
}

// CreateHashed inserts a user whose password is already a bcrypt hash.  It
// backs the tenant owner's mirror account.
func (r *UserRepo) CreateHashed(ctx context.Context, username, hash string, role model.Role) (int64, error) {
	username = strings.TrimSpace(username)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, role, created_at) VALUES (?,?,?,?)",
		username, hash, string(role), time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return r.get(ctx, "username=?", strings.TrimSpace(username))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	return r.get(ctx, "id=?", id)
}

func (r *UserRepo) get(ctx context.Context, where string, arg any) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, username, password_hash, role, created_at FROM users WHERE "+where+" LIMIT 1",
		arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	u.Role = model.Role(role)
	return u, err
}

// List returns all users ordered by username.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, username, password_hash, role, created_at FROM users ORDER BY username")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		var (
			u    model.User
			role string
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Role = model.Role(role)
		out = append(out, u)
	}
	return out, rows.Err()
}
