// package store provides the persistence layer for credentials and
// recognition history.
//
// Both repositories are thin wrappers over the shared SQLite database; schema
// is applied by the migration runner in [shared.RunMigrations].
package store

import (
	"github.com/waaaaall/snaptrack/internal/models"
)

// TokenStore is the persistent key-value surface the credential manager
// writes through. A credential is replaced whole or not at all.
type TokenStore interface {
	// Load returns the persisted credential, or nil when none is stored.
	Load() (*models.Credential, error)

	// Save atomically replaces the stored credential.
	Save(models.Credential) error

	// Clear removes the stored credential.
	Clear() error
}

// HistoryStore records terminal pipeline outcomes.
type HistoryStore interface {
	Create(models.Recognition) error
	List(limit int) ([]models.Recognition, error)
}
