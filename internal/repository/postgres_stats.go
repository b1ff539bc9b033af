package repository

import (
	"context"
	"fmt"

	"github.com/roleverse/sceneflow/internal/domain"
)

func (p *Postgres) SceneStats(ctx context.Context, ownerID int64) (domain.SceneStats, error) {
	var stats domain.SceneStats

	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'active')
		FROM scene_sessions WHERE owner_id = $1`, ownerID).
		Scan(&stats.TotalSessions, &stats.ActiveSessions)
	if err != nil {
		return domain.SceneStats{}, fmt.Errorf("count sessions: %w", err)
	}

	err = p.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM scene_messages m
		JOIN scene_sessions s ON s.id = m.session_id
		WHERE s.owner_id = $1`, ownerID).Scan(&stats.TotalMessages)
	if err != nil {
		return domain.SceneStats{}, fmt.Errorf("count messages: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT t.title, COUNT(s.id) AS usage_count
		FROM scene_templates t
		JOIN scene_sessions s ON s.template_id = t.id
		WHERE s.owner_id = $1
		GROUP BY t.title ORDER BY usage_count DESC LIMIT 5`, ownerID)
	if err != nil {
		return domain.SceneStats{}, fmt.Errorf("popular templates: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u domain.TemplateUsage
		if err := rows.Scan(&u.Template, &u.Count); err != nil {
			return domain.SceneStats{}, fmt.Errorf("scan template usage: %w", err)
		}
		stats.PopularTemplates = append(stats.PopularTemplates, u)
	}
	if err := rows.Err(); err != nil {
		return domain.SceneStats{}, err
	}

	roleRows, err := p.pool.Query(ctx, `
		SELECT r.name, COUNT(p.id) AS participation_count
		FROM roles r
		JOIN scene_participants p ON p.role_id = r.id
		JOIN scene_sessions s ON s.id = p.session_id
		WHERE s.owner_id = $1
		GROUP BY r.name ORDER BY participation_count DESC LIMIT 10`, ownerID)
	if err != nil {
		return domain.SceneStats{}, fmt.Errorf("role participation: %w", err)
	}
	defer roleRows.Close()
	for roleRows.Next() {
		var u domain.RoleUsage
		if err := roleRows.Scan(&u.Role, &u.Count); err != nil {
			return domain.SceneStats{}, fmt.Errorf("scan role usage: %w", err)
		}
		stats.RoleParticipation = append(stats.RoleParticipation, u)
	}
	return stats, roleRows.Err()
}
