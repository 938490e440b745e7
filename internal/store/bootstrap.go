package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
)

// Store bundles the repos over one routes.db connection.
type Store struct {
	db *sql.DB

	Routes          *RouteRepo
	TempAssignments *TempAssignmentRepo
	Fleet           *FleetRepo
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Bootstrap opens (or creates) routes.db under stateDir, applies migrations,
// and returns a ready-to-use Store.
func Bootstrap(stateDir string) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir %s: %w", stateDir, err)
	}

	dbPath := filepath.Join(stateDir, "routes.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open routes.db: %w", err)
	}

	if err := MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate routes.db: %w", err)
	}

	return &Store{
		db:              db,
		Routes:          NewRouteRepo(db),
		TempAssignments: NewTempAssignmentRepo(db),
		Fleet:           NewFleetRepo(db),
	}, nil
}
