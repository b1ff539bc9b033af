package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roleverse/sceneflow/internal/domain"
)

// Memory is an in-process Store used by tests and local development. It
// mirrors the Postgres semantics: soft participant removal, unique
// (session, role) pairs, and gapless per-session message orders.
type Memory struct {
	mu sync.Mutex

	nextID       int64
	templates    map[int64]domain.SceneTemplate
	roles        map[int64]domain.Role
	sessions     map[int64]domain.Session
	participants map[int64]domain.Participant
	messages     map[int64][]domain.Message // keyed by session id, ordered
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		templates:    make(map[int64]domain.SceneTemplate),
		roles:        make(map[int64]domain.Role),
		sessions:     make(map[int64]domain.Session),
		participants: make(map[int64]domain.Participant),
		messages:     make(map[int64][]domain.Message),
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) CreateTemplate(_ context.Context, t domain.SceneTemplate) (domain.SceneTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.id()
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	m.templates[t.ID] = t
	return t, nil
}

func (m *Memory) GetTemplate(_ context.Context, id int64) (domain.SceneTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return domain.SceneTemplate{}, domain.ErrTemplateNotFound
	}
	return t, nil
}

func (m *Memory) GetTemplateByName(_ context.Context, name string) (domain.SceneTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.templates {
		if t.Name == name {
			return t, nil
		}
	}
	return domain.SceneTemplate{}, domain.ErrTemplateNotFound
}

func (m *Memory) ListTemplates(_ context.Context, sceneType domain.SceneType, page, size int) ([]domain.SceneTemplate, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.SceneTemplate
	for _, t := range m.templates {
		if !t.IsActive {
			continue
		}
		if sceneType != "" && t.SceneType != sceneType {
			continue
		}
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, page, size), int64(len(all)), nil
}

func (m *Memory) CreateRole(_ context.Context, r domain.Role) (domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.id()
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now
	m.roles[r.ID] = r
	return r, nil
}

func (m *Memory) GetRole(_ context.Context, id int64) (domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return domain.Role{}, domain.ErrRoleNotFound
	}
	return r, nil
}

func (m *Memory) GetRoleByName(_ context.Context, name string) (domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return domain.Role{}, domain.ErrRoleNotFound
}

func (m *Memory) ListRoles(_ context.Context) ([]domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var roles []domain.Role
	for _, r := range m.roles {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

func (m *Memory) CreateSession(_ context.Context, s domain.Session) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	now := time.Now()
	s.CreatedAt, s.UpdatedAt = now, now
	m.sessions[s.ID] = s
	return s, nil
}

func (m *Memory) GetSession(_ context.Context, id int64) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return s, nil
}

func (m *Memory) ListSessionsByOwner(_ context.Context, ownerID int64, page, size int) ([]domain.Session, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.Session
	for _, s := range m.sessions {
		if s.OwnerID == ownerID {
			all = append(all, s)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })
	return paginate(all, page, size), int64(len(all)), nil
}

func (m *Memory) UpdateSessionStatus(_ context.Context, id int64, status domain.SessionStatus, endedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Status = status
	if endedAt != nil {
		s.EndedAt = endedAt
	}
	s.UpdatedAt = time.Now()
	m.sessions[id] = s
	return nil
}

func (m *Memory) UpdateSessionInfo(_ context.Context, id int64, name, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Name = name
	s.Description = description
	s.UpdatedAt = time.Now()
	m.sessions[id] = s
	return nil
}

func (m *Memory) UpdateSessionTurn(_ context.Context, id int64, currentSpeaker *int64, messageCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.CurrentSpeaker = currentSpeaker
	s.MessageCount = messageCount
	s.UpdatedAt = time.Now()
	m.sessions[id] = s
	return nil
}

func (m *Memory) AddParticipant(_ context.Context, p domain.Participant) (domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.participants {
		if existing.SessionID == p.SessionID && existing.RoleID == p.RoleID {
			return domain.Participant{}, domain.ErrRoleAlreadyJoined
		}
	}
	p.ID = m.id()
	p.CreatedAt = time.Now()
	m.participants[p.ID] = p
	return p, nil
}

func (m *Memory) GetParticipant(_ context.Context, id int64) (domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, nil
}

func (m *Memory) ListParticipants(_ context.Context, sessionID int64) ([]domain.Participant, error) {
	return m.listParticipants(sessionID, false), nil
}

func (m *Memory) ListActiveParticipants(_ context.Context, sessionID int64) ([]domain.Participant, error) {
	return m.listParticipants(sessionID, true), nil
}

func (m *Memory) listParticipants(sessionID int64, activeOnly bool) []domain.Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Participant
	for _, p := range m.participants {
		if p.SessionID != sessionID {
			continue
		}
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinOrder < out[j].JoinOrder })
	return out
}

func (m *Memory) DeactivateParticipant(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[id]
	if !ok {
		return false, nil
	}
	p.Active = false
	m.participants[id] = p
	return true, nil
}

func (m *Memory) RecordSpeech(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[id]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	p.SpeakCount++
	p.LastSpokeAt = &at
	m.participants[id] = p
	return nil
}

func (m *Memory) AppendMessage(_ context.Context, msg domain.Message) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.id()
	msg.Order = len(m.messages[msg.SessionID]) + 1
	msg.CreatedAt = time.Now()
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], msg)
	return msg, nil
}

func (m *Memory) ListMessages(_ context.Context, sessionID int64, page, size int) ([]domain.Message, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.messages[sessionID]
	return paginate(all, page, size), int64(len(all)), nil
}

func (m *Memory) RecentMessages(_ context.Context, sessionID int64, n int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.messages[sessionID]
	if len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]domain.Message, len(all))
	copy(out, all)
	return out, nil
}

func (m *Memory) SceneStats(_ context.Context, ownerID int64) (domain.SceneStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats domain.SceneStats
	owned := make(map[int64]bool)
	templateUse := make(map[int64]int64)
	for _, s := range m.sessions {
		if s.OwnerID != ownerID {
			continue
		}
		owned[s.ID] = true
		stats.TotalSessions++
		if s.Status == domain.StatusActive {
			stats.ActiveSessions++
		}
		templateUse[s.TemplateID]++
	}
	for sessionID, msgs := range m.messages {
		if owned[sessionID] {
			stats.TotalMessages += int64(len(msgs))
		}
	}
	roleUse := make(map[int64]int64)
	for _, p := range m.participants {
		if owned[p.SessionID] {
			roleUse[p.RoleID]++
		}
	}
	for templateID, count := range templateUse {
		stats.PopularTemplates = append(stats.PopularTemplates, domain.TemplateUsage{
			Template: m.templates[templateID].Title,
			Count:    count,
		})
	}
	sort.Slice(stats.PopularTemplates, func(i, j int) bool {
		return stats.PopularTemplates[i].Count > stats.PopularTemplates[j].Count
	})
	for roleID, count := range roleUse {
		stats.RoleParticipation = append(stats.RoleParticipation, domain.RoleUsage{
			Role:  m.roles[roleID].Name,
			Count: count,
		})
	}
	sort.Slice(stats.RoleParticipation, func(i, j int) bool {
		return stats.RoleParticipation[i].Count > stats.RoleParticipation[j].Count
	})
	return stats, nil
}

// paginate clamps out-of-range page/size instead of failing: page < 1 reads
// as the first page, size < 1 yields nothing.
func paginate[T any](all []T, page, size int) []T {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		return nil
	}
	offset := (page - 1) * size
	if offset >= len(all) {
		return nil
	}
	end := offset + size
	if end > len(all) {
		end = len(all)
	}
	out := make([]T, end-offset)
	copy(out, all[offset:end])
	return out
}
