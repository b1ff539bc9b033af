package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/roleverse/sceneflow/internal/domain"
)

const templateColumns = `id, name, title, description, scene_type, min_roles, max_roles, strategy, rules, is_active, created_at, updated_at`

func (p *Postgres) CreateTemplate(ctx context.Context, t domain.SceneTemplate) (domain.SceneTemplate, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO scene_templates (name, title, description, scene_type, min_roles, max_roles, strategy, rules, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		t.Name, t.Title, t.Description, string(t.SceneType), t.MinRoles, t.MaxRoles, t.Strategy.String(), t.Rules, t.IsActive)
	if err := row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.SceneTemplate{}, fmt.Errorf("create template: %w", err)
	}
	return t, nil
}

func (p *Postgres) GetTemplate(ctx context.Context, id int64) (domain.SceneTemplate, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM scene_templates WHERE id = $1`, id)
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SceneTemplate{}, domain.ErrTemplateNotFound
		}
		return domain.SceneTemplate{}, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (p *Postgres) GetTemplateByName(ctx context.Context, name string) (domain.SceneTemplate, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM scene_templates WHERE name = $1`, name)
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SceneTemplate{}, domain.ErrTemplateNotFound
		}
		return domain.SceneTemplate{}, fmt.Errorf("get template by name: %w", err)
	}
	return t, nil
}

func (p *Postgres) ListTemplates(ctx context.Context, sceneType domain.SceneType, page, size int) ([]domain.SceneTemplate, int64, error) {
	where := `WHERE is_active`
	args := []any{}
	if sceneType != "" {
		where += ` AND scene_type = $1`
		args = append(args, string(sceneType))
	}

	var total int64
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scene_templates `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count templates: %w", err)
	}

	limit, offset := pageBounds(page, size)
	query := fmt.Sprintf(`SELECT %s FROM scene_templates %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		templateColumns, where, limit, offset)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []domain.SceneTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, total, rows.Err()
}

func scanTemplate(row pgx.Row) (domain.SceneTemplate, error) {
	var t domain.SceneTemplate
	var sceneType, strategy string
	if err := row.Scan(&t.ID, &t.Name, &t.Title, &t.Description, &sceneType, &t.MinRoles, &t.MaxRoles,
		&strategy, &t.Rules, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.SceneTemplate{}, err
	}
	t.SceneType = domain.SceneType(sceneType)
	st, err := domain.ParseStrategy(strategy)
	if err != nil {
		return domain.SceneTemplate{}, err
	}
	t.Strategy = st
	return t, nil
}
