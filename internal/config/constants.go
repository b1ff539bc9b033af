package config

import "time"

const (
	// AI request timeout
	RequestTimeout = 90 * time.Second

	// Lore page fetch timeout
	LoreFetchTimeout = 30 * time.Second

	// Graceful shutdown budget
	ShutdownTimeout = 10 * time.Second

	// Pagination
	MessagesPerPage    = 50
	MaxMessagesPerPage = 200
	SessionsPerPage    = 10
	TemplatesPerPage   = 10
	MaxPageSize        = 50

	// Scene engine
	SuggestionCount      = 3
	DefaultContextWindow = 20
	DetailMessageCount   = 20

	// Personality
	DefaultTemperature = 1.0
	MaxTemperature     = 2.0

	// Lore importer
	MaxLoreRunes = 4000

	// Ops notifications
	NotifyTimeout = 10 * time.Second
	MaxNotifyLen  = 4096
)
