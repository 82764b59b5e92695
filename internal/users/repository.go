package users

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sfv-tech/sfv-ops/internal/shared"
)

var ErrNotFound = errors.New("user not found")

type ListFilters struct {
	Role     *shared.Role
	IsActive *bool
	Search   string
	Limit    int
	Offset   int
}

type Repository interface {
	Get(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context, filters ListFilters) ([]User, int, error)
	Create(ctx context.Context, user User) (int64, error)
	Update(ctx context.Context, id int64, user User) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const userColumns = `id, full_name, email, phone, role, is_active, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]User, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Role != nil {
		argCount++
		where += ` AND role = $` + strconv.Itoa(argCount)
		args = append(args, string(*filters.Role))
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}
	if filters.Search != "" {
		argCount++
		where += ` AND (full_name ILIKE $` + strconv.Itoa(argCount) + ` OR email ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY full_name ASC`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *user)
	}
	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, user User) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (full_name, email, phone, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id
	`, user.FullName, user.Email, user.Phone, string(user.Role), user.IsActive).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, user User) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET full_name = $1, email = $2, phone = $3, role = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6
	`, user.FullName, user.Email, user.Phone, string(user.Role), user.IsActive, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.Phone, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := shared.ParseRole(role)
	if err != nil {
		return nil, err
	}
	u.Role = parsed
	return &u, nil
}
