package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/roleverse/sceneflow/internal/domain"
)

const sessionColumns = `id, public_id::text, template_id, owner_id, name, description, status, current_speaker, message_count, created_at, updated_at, ended_at`

func (p *Postgres) CreateSession(ctx context.Context, s domain.Session) (domain.Session, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO scene_sessions (public_id, template_id, owner_id, name, description, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		s.PublicID, s.TemplateID, s.OwnerID, s.Name, s.Description, string(s.Status))
	if err := row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func (p *Postgres) GetSession(ctx context.Context, id int64) (domain.Session, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM scene_sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (p *Postgres) ListSessionsByOwner(ctx context.Context, ownerID int64, page, size int) ([]domain.Session, int64, error) {
	var total int64
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scene_sessions WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	limit, offset := pageBounds(page, size)
	rows, err := p.pool.Query(ctx, `SELECT `+sessionColumns+` FROM scene_sessions
		WHERE owner_id = $1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, total, rows.Err()
}

func (p *Postgres) UpdateSessionStatus(ctx context.Context, id int64, status domain.SessionStatus, endedAt *time.Time) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE scene_sessions
		SET status = $2, ended_at = COALESCE($3, ended_at), updated_at = now()
		WHERE id = $1`,
		id, string(status), timePtrToPgTimestamptz(endedAt))
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (p *Postgres) UpdateSessionInfo(ctx context.Context, id int64, name, description string) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE scene_sessions
		SET name = $2, description = $3, updated_at = now()
		WHERE id = $1`,
		id, name, description)
	if err != nil {
		return fmt.Errorf("update session info: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (p *Postgres) UpdateSessionTurn(ctx context.Context, id int64, currentSpeaker *int64, messageCount int) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE scene_sessions
		SET current_speaker = $2, message_count = $3, updated_at = now()
		WHERE id = $1`,
		id, currentSpeaker, messageCount)
	if err != nil {
		return fmt.Errorf("update session turn: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func scanSession(row pgx.Row) (domain.Session, error) {
	var s domain.Session
	var status string
	var endedAt pgtype.Timestamptz
	if err := row.Scan(&s.ID, &s.PublicID, &s.TemplateID, &s.OwnerID, &s.Name, &s.Description,
		&status, &s.CurrentSpeaker, &s.MessageCount, &s.CreatedAt, &s.UpdatedAt, &endedAt); err != nil {
		return domain.Session{}, err
	}
	s.Status = domain.SessionStatus(status)
	s.EndedAt = pgTimestamptzToTimePtr(endedAt)
	return s, nil
}
