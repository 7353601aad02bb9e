package types

import "time"

// FormatVersion is the manifest schema version written by this build.
const FormatVersion = "1.0.0"

// Manifest enumerates the services and kinds present in a snapshot. It is
// written once, last, as the commit point of a backup.
type Manifest struct {
	FormatVersion string                     `json:"format_version"`
	SnapshotID    string                     `json:"snapshot_id"`
	CreatedAt     time.Time                  `json:"created_at"`
	Description   string                     `json:"description,omitempty"`
	Degraded      bool                       `json:"degraded,omitempty"`
	Services      map[string]ServiceManifest `json:"services"`
}

// ServiceManifest describes one backed-up service within a snapshot.
type ServiceManifest struct {
	Type     string   `json:"type"`
	Version  string   `json:"version"`
	Priority int      `json:"priority"`
	Data     []string `json:"data"`
}

// Artifact is the per-kind blob stored at
// <snapshot_id>/<service>/<kind>.json.
type Artifact struct {
	Message string           `json:"message,omitempty"`
	Result  []map[string]any `json:"result"`
	Error   string           `json:"error,omitempty"`
	Status  int              `json:"status,omitempty"`
}

// SnapshotSummary is the reduced view returned by list operations.
type SnapshotSummary struct {
	SnapshotID  string    `json:"snapshot_id"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description,omitempty"`
	Degraded    bool      `json:"degraded,omitempty"`
	Services    []string  `json:"services"`
}
