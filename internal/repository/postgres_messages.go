package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/roleverse/sceneflow/internal/domain"
)

const messageColumns = `id, session_id, participant_id, role_id, message_type, content, target_participant_id, message_order, created_at`

// AppendMessage assigns message_order in the same statement so the append is
// atomic; the unique (session_id, message_order) index backstops it.
func (p *Postgres) AppendMessage(ctx context.Context, m domain.Message) (domain.Message, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO scene_messages (session_id, participant_id, role_id, message_type, content, target_participant_id, message_order)
		VALUES ($1, $2, $3, $4, $5, $6,
			(SELECT COALESCE(MAX(message_order), 0) + 1 FROM scene_messages WHERE session_id = $1))
		RETURNING id, message_order, created_at`,
		m.SessionID, m.ParticipantID, m.RoleID, string(m.Type), m.Content, m.TargetParticipantID)
	if err := row.Scan(&m.ID, &m.Order, &m.CreatedAt); err != nil {
		return domain.Message{}, fmt.Errorf("append message: %w", err)
	}
	return m, nil
}

func (p *Postgres) ListMessages(ctx context.Context, sessionID int64, page, size int) ([]domain.Message, int64, error) {
	var total int64
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scene_messages WHERE session_id = $1`, sessionID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	limit, offset := pageBounds(page, size)
	rows, err := p.pool.Query(ctx, `SELECT `+messageColumns+` FROM scene_messages
		WHERE session_id = $1 ORDER BY message_order LIMIT $2 OFFSET $3`, sessionID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (p *Postgres) RecentMessages(ctx context.Context, sessionID int64, n int) ([]domain.Message, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+messageColumns+` FROM scene_messages
		WHERE session_id = $1 ORDER BY message_order DESC LIMIT $2`, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	// Reverse back into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func collectMessages(rows pgx.Rows) ([]domain.Message, error) {
	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var msgType string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.ParticipantID, &m.RoleID, &msgType,
			&m.Content, &m.TargetParticipantID, &m.Order, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Type = domain.MessageType(msgType)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
