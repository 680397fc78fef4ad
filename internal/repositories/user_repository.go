package repositories

import (
	"context"
	"database/sql"
	_ "embed"
	"visitdesk/internal/models"

	"github.com/lib/pq"
)

//go:embed migrations/001_create_users_table_up.sql
var createUsersTableQuery string

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) (*UserRepository, error) {
	repo := UserRepository{db: db}
	if _, err := repo.db.Exec(createUsersTableQuery); err != nil {
		return nil, err
	}
	return &repo, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, role, profile_picture FROM users WHERE id = $1", id).
		Scan(&user.ID, &user.Name, &user.Role, &user.ProfilePicture)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, role, profile_picture FROM users WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Role, &user.ProfilePicture); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) FilterExisting(ctx context.Context, ids []string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM users WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	known := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		known[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var existing []string
	for _, id := range ids {
		if known[id] {
			existing = append(existing, id)
			known[id] = false
		}
	}
	return existing, nil
}

// CreateUser is used by sample-data seeding and tests; identity records are
// otherwise owned by the directory.
func (r *UserRepository) CreateUser(ctx context.Context, user models.User) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, name, role, profile_picture) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING",
		user.ID, user.Name, user.Role, user.ProfilePicture)
	return err
}
