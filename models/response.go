package models

// ScoredResponse is the body returned when relevance scoring was requested.
type ScoredResponse struct {
	Items []ScoredItem `json:"items"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// PingResponse is the response for GET /api/v1/ping.
type PingResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string       `json:"status"` // "healthy" or "degraded"
	Uptime       string       `json:"uptime"`
	SessionStats SessionStats `json:"session_stats"`
	Version      string       `json:"version"`
}

// SessionStats reports browser usage across in-flight searches.
type SessionStats struct {
	MaxSessions    int `json:"max_sessions"`
	ActiveSessions int `json:"active_sessions"`
	ActiveTabs     int `json:"active_tabs"`
}
