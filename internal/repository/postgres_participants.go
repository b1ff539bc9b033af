package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/roleverse/sceneflow/internal/domain"
	"github.com/shopspring/decimal"
)

const participantColumns = `id, session_id, role_id, kind, join_order, is_active, personality_version, tone, verbosity, temperature, quirks, model, speak_count, last_spoke_at, created_at`

func (p *Postgres) AddParticipant(ctx context.Context, pt domain.Participant) (domain.Participant, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO scene_participants (session_id, role_id, kind, join_order, is_active, personality_version, tone, verbosity, temperature, quirks, model)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`,
		pt.SessionID, pt.RoleID, string(pt.Kind), pt.JoinOrder, pt.Active,
		pt.Personality.Version, pt.Personality.Tone, pt.Personality.Verbosity,
		decimal.NewFromFloat(pt.Personality.Temperature), pt.Personality.Quirks, pt.Personality.Model)
	if err := row.Scan(&pt.ID, &pt.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.Participant{}, domain.ErrRoleAlreadyJoined
		}
		return domain.Participant{}, fmt.Errorf("add participant: %w", err)
	}
	return pt, nil
}

func (p *Postgres) GetParticipant(ctx context.Context, id int64) (domain.Participant, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+participantColumns+` FROM scene_participants WHERE id = $1`, id)
	pt, err := scanParticipant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Participant{}, domain.ErrParticipantNotFound
		}
		return domain.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return pt, nil
}

func (p *Postgres) ListParticipants(ctx context.Context, sessionID int64) ([]domain.Participant, error) {
	return p.listParticipants(ctx, `SELECT `+participantColumns+` FROM scene_participants
		WHERE session_id = $1 ORDER BY join_order`, sessionID)
}

func (p *Postgres) ListActiveParticipants(ctx context.Context, sessionID int64) ([]domain.Participant, error) {
	return p.listParticipants(ctx, `SELECT `+participantColumns+` FROM scene_participants
		WHERE session_id = $1 AND is_active ORDER BY join_order`, sessionID)
}

func (p *Postgres) listParticipants(ctx context.Context, query string, sessionID int64) ([]domain.Participant, error) {
	rows, err := p.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		pt, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, pt)
	}
	return participants, rows.Err()
}

func (p *Postgres) DeactivateParticipant(ctx context.Context, id int64) (bool, error) {
	tag, err := p.pool.Exec(ctx, `UPDATE scene_participants SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deactivate participant: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) RecordSpeech(ctx context.Context, id int64, at time.Time) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE scene_participants
		SET speak_count = speak_count + 1, last_spoke_at = $2
		WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("record speech: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func scanParticipant(row pgx.Row) (domain.Participant, error) {
	var pt domain.Participant
	var kind string
	var temperature decimal.Decimal
	var lastSpokeAt pgtype.Timestamptz
	if err := row.Scan(&pt.ID, &pt.SessionID, &pt.RoleID, &kind, &pt.JoinOrder, &pt.Active,
		&pt.Personality.Version, &pt.Personality.Tone, &pt.Personality.Verbosity, &temperature,
		&pt.Personality.Quirks, &pt.Personality.Model, &pt.SpeakCount, &lastSpokeAt, &pt.CreatedAt); err != nil {
		return domain.Participant{}, err
	}
	pt.Kind = domain.ParticipantKind(kind)
	pt.Personality.Temperature = decimalToFloat(temperature)
	pt.LastSpokeAt = pgTimestamptzToTimePtr(lastSpokeAt)
	return pt, nil
}
