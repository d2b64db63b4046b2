package models

import "time"

// Source is a registered content origin together with its synthesized
// ingestion configuration. The config is written once at registration and
// never mutated by the synthesis subsystem; later edits happen through the
// source-update API.
type Source struct {
	ID         string       `json:"id"                   db:"id"`
	Identifier string       `json:"identifier"           db:"identifier"`
	Name       string       `json:"name,omitempty"       db:"name"`
	Platform   Platform     `json:"platform"             db:"platform"`
	Config     SourceConfig `json:"config"               db:"config"`
	Enabled    bool         `json:"enabled"              db:"enabled"`
	CreatedAt  time.Time    `json:"created_at"           db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"           db:"updated_at"`
	DeletedAt  *time.Time   `json:"deleted_at,omitempty" db:"deleted_at"`
}
