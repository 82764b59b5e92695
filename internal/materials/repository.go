package materials

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("material not found")

type ListFilters struct {
	Category string
	Search   string
	IsActive *bool
	Limit    int
	Offset   int
}

type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Material, int, error)
	Get(ctx context.Context, id int64) (*Material, error)
	Create(ctx context.Context, material Material) (int64, error)
	Update(ctx context.Context, id int64, material Material) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const materialColumns = `id, name, category, unit, unit_price, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Material, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Category != "" {
		argCount++
		where += ` AND category = $` + strconv.Itoa(argCount)
		args = append(args, filters.Category)
	}
	if filters.Search != "" {
		argCount++
		where += ` AND name ILIKE $` + strconv.Itoa(argCount)
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM materials`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + materialColumns + ` FROM materials` + where + ` ORDER BY name ASC`
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

	var result []Material
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.ID, &m.Name, &m.Category, &m.Unit, &m.UnitPrice, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, m)
	}
	return result, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Material, error) {
	var m Material
	err := r.db.QueryRow(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.Category, &m.Unit, &m.UnitPrice, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *repository) Create(ctx context.Context, material Material) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO materials (name, category, unit, unit_price, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id
	`, material.Name, material.Category, material.Unit, material.UnitPrice, material.IsActive).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, material Material) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE materials
		SET name = $1, category = $2, unit = $3, unit_price = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6
	`, material.Name, material.Category, material.Unit, material.UnitPrice, material.IsActive, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
