// internal/model/models.go
package model

import "time"

// UnknownLanguage is the language reported when the source omits it.
const UnknownLanguage = "Unknown"

// StarRecord is the normalized form of one starred repository.
type StarRecord struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Language    string   `json:"language"`
	Topics      []string `json:"topics"`
	Stars       int      `json:"stars"`
	StarredAt   string   `json:"starred_at"`
	LastUpdated string   `json:"last_updated,omitempty"`
	Homepage    string   `json:"homepage,omitempty"`
}

// SyncRun is one entry of the sync ledger.
type SyncRun struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	RecordCount    int       `json:"record_count"`
	LocalPath      string    `json:"local_path"`
	Published      bool      `json:"published"`
	PublishOutcome string    `json:"publish_outcome"`
	PublishError   string    `json:"publish_error,omitempty"`
	Mirrored       int       `json:"mirrored"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}
