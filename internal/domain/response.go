package domain

// SceneResponse is the result of one orchestrated turn. Messages holds the
// replies generated this turn; the incoming message is persisted separately
// and is never part of this slice.
type SceneResponse struct {
	SessionID      int64     `json:"session_id"`
	Messages       []Message `json:"messages"`
	CurrentSpeaker *int64    `json:"current_speaker,omitempty"`
	// SpeakerRotation lists active AI role ids in join order.
	SpeakerRotation []int64  `json:"speaker_rotation"`
	Suggestions     []string `json:"suggestions,omitempty"`
}

type TemplateUsage struct {
	Template string `json:"template"`
	Count    int64  `json:"count"`
}

type RoleUsage struct {
	Role  string `json:"role"`
	Count int64  `json:"count"`
}

type SceneStats struct {
	TotalSessions     int64           `json:"total_sessions"`
	ActiveSessions    int64           `json:"active_sessions"`
	TotalMessages     int64           `json:"total_messages"`
	PopularTemplates  []TemplateUsage `json:"popular_templates"`
	RoleParticipation []RoleUsage     `json:"role_participation"`
}
