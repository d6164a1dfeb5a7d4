package backend

import (
	"context"
	"slices"

	"struk/internal/session"
	"struk/internal/sheets"
	"struk/internal/storage"
)

// CleanupFunc releases what a Result holds.
type CleanupFunc func(ctx context.Context) error

// Result is the wired local store plus the optional remote. Remote and
// Session are nil when no remote is configured; Session is only set for the
// google remote.
type Result struct {
	Store   *storage.SQLiteRepository
	Remote  sheets.Remote
	Session *session.Session
	Cleanup CleanupFunc
}

// Factory opens the store and builds the configured remote.
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	DBPath string

	Remote    RemoteType
	RemoteDir string // file remote only

	Session session.Options // google remote only
}

// RemoteType selects where spreadsheet rows go.
type RemoteType string

const (
	GoogleRemote RemoteType = "google"
	FileRemote   RemoteType = "file"
	MemoryRemote RemoteType = "memory"
	NoRemote     RemoteType = "none"
)

// String implements fmt.Stringer
func (rt RemoteType) String() string {
	return string(rt)
}

// IsValid returns true if the remote type is valid
func (rt RemoteType) IsValid() bool {
	return slices.Contains(RemoteTypes(), rt)
}
