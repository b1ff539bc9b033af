package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/roleverse/sceneflow/internal/domain"
)

const roleColumns = `id, name, tags, system_prompt, background, model, created_at, updated_at`

func (p *Postgres) CreateRole(ctx context.Context, r domain.Role) (domain.Role, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO roles (name, tags, system_prompt, background, model)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		r.Name, r.Tags, r.SystemPrompt, r.Background, r.Model)
	if err := row.Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return domain.Role{}, fmt.Errorf("create role: %w", err)
	}
	return r, nil
}

func (p *Postgres) GetRole(ctx context.Context, id int64) (domain.Role, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	r, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Role{}, domain.ErrRoleNotFound
		}
		return domain.Role{}, fmt.Errorf("get role: %w", err)
	}
	return r, nil
}

func (p *Postgres) GetRoleByName(ctx context.Context, name string) (domain.Role, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name)
	r, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Role{}, domain.ErrRoleNotFound
		}
		return domain.Role{}, fmt.Errorf("get role by name: %w", err)
	}
	return r, nil
}

func (p *Postgres) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func scanRole(row pgx.Row) (domain.Role, error) {
	var r domain.Role
	if err := row.Scan(&r.ID, &r.Name, &r.Tags, &r.SystemPrompt, &r.Background, &r.Model,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		return domain.Role{}, err
	}
	return r, nil
}
