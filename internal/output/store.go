package output

import (
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store is the SQLite event store for recorded runs.
// Uses WAL mode for concurrent read access during writes.
type Store struct {
	db *sql.DB
}

// OpenStore creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema. Idempotent.
//
// The connection pool is limited to a single connection: SQLite supports
// one writer at a time, and the single connection makes every sink write
// serialize without SQLITE_BUSY errors.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect event store: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply event store schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Run is one recorded simulation run.
type Run struct {
	ID         string
	CreatedAt  string
	Seed       uint64
	Config     []byte
	ConfigHash string
}

// CreateRun registers a new run and returns its ID (UUIDv7, so run IDs
// sort by creation time).
func (s *Store) CreateRun(seed uint64, config []byte) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	hash := sha256.Sum256(config)

	_, err := s.db.Exec(`
		INSERT INTO runs (id, created_at, seed, config, config_hash)
		VALUES (?, ?, ?, ?, ?)
	`,
		id,
		time.Now().UTC().Format(time.RFC3339),
		int64(seed),
		string(config),
		hex.EncodeToString(hash[:]),
	)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

// WriteTerminal records a candidate's terminal snapshot.
// Idempotent via ON CONFLICT DO NOTHING.
func (s *Store) WriteTerminal(runID string, snap Snapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO candidates
		(run_id, lineage, serial, parent_serial, particle_id,
		 source_energy, current_energy, x, y, z, dir_x, dir_y, dir_z,
		 redshift, trajectory_length, cause, snapshot_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID, snap.Lineage, snap.Serial, snap.ParentSerial, snap.ParticleID,
		snap.SourceEnergy, snap.CurrentEnergy,
		snap.Position.X, snap.Position.Y, snap.Position.Z,
		snap.Direction.X, snap.Direction.Y, snap.Direction.Z,
		snap.Redshift, snap.TrajectoryLength, snap.Cause, snap.Hash(),
	)
	if err != nil {
		return fmt.Errorf("write terminal %s: %w", snap.Lineage, err)
	}
	return nil
}

// WriteStep records one step of a candidate's trajectory.
func (s *Store) WriteStep(runID string, idx int, snap Snapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO steps
		(run_id, lineage, idx, particle_id, energy, x, redshift, trajectory_length)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID, snap.Lineage, idx, snap.ParticleID,
		snap.CurrentEnergy, snap.Position.X, snap.Redshift, snap.TrajectoryLength,
	)
	if err != nil {
		return fmt.Errorf("write step %s/%d: %w", snap.Lineage, idx, err)
	}
	return nil
}

// WriteDetection records an observer detection.
func (s *Store) WriteDetection(runID string, snap Snapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO detections
		(run_id, lineage, observer, serial, particle_id,
		 source_energy, current_energy, x, redshift, trajectory_length)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID, snap.Lineage, snap.Observer, snap.Serial, snap.ParticleID,
		snap.SourceEnergy, snap.CurrentEnergy,
		snap.Position.X, snap.Redshift, snap.TrajectoryLength,
	)
	if err != nil {
		return fmt.Errorf("write detection %s@%s: %w", snap.Lineage, snap.Observer, err)
	}
	return nil
}
