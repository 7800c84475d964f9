// Package journal keeps the recent patch history of a running server and
// fans updates out to live subscribers.
package journal

import "github.com/grovetools/devsync/pkg/models"

// UpdateType defines what kind of data changed.
type UpdateType string

const (
	UpdatePatch        UpdateType = "patch"
	UpdateConnection   UpdateType = "connection"
	UpdateConfigReload UpdateType = "config_reload"
)

// Update represents one journal event.
type Update struct {
	Type       UpdateType          `json:"type"`
	Result     *models.PatchResult `json:"result,omitempty"`
	Connection *ConnectionEvent    `json:"connection,omitempty"`
	File       string              `json:"file,omitempty"`
}

// ConnectionEvent reports a capture client connecting or going away.
type ConnectionEvent struct {
	ID     string `json:"id"`
	Remote string `json:"remote"`
	Open   bool   `json:"open"`
}

// Stats summarises the journal.
type Stats struct {
	Connections int `json:"connections"`
	Applied     int `json:"applied"`
	Unchanged   int `json:"unchanged"`
	Failed      int `json:"failed"`
}
