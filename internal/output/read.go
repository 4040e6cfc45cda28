package output

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNoRuns is returned by LatestRun on an empty database.
var ErrNoRuns = errors.New("event store holds no runs")

// GetRun loads one recorded run by ID.
func (s *Store) GetRun(id string) (Run, error) {
	var (
		r      Run
		seed   int64
		config string
	)
	err := s.db.QueryRow(`
		SELECT id, created_at, seed, config, config_hash FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.CreatedAt, &seed, &config, &r.ConfigHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	r.Seed = uint64(seed)
	r.Config = []byte(config)
	return r, nil
}

// LatestRun loads the most recently created run.
func (s *Store) LatestRun() (Run, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM runs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNoRuns
	}
	if err != nil {
		return Run{}, fmt.Errorf("read latest run: %w", err)
	}
	return s.GetRun(id)
}

// TerminalRecord is a recorded terminal candidate.
type TerminalRecord struct {
	Lineage string
	Serial  string
	Cause   string
	Hash    string
}

// Terminals lists a run's terminal candidates ordered by lineage.
func (s *Store) Terminals(runID string) ([]TerminalRecord, error) {
	rows, err := s.db.Query(`
		SELECT lineage, serial, cause, snapshot_hash
		FROM candidates WHERE run_id = ? ORDER BY lineage
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read terminals: %w", err)
	}
	defer rows.Close()

	var out []TerminalRecord
	for rows.Next() {
		var t TerminalRecord
		if err := rows.Scan(&t.Lineage, &t.Serial, &t.Cause, &t.Hash); err != nil {
			return nil, fmt.Errorf("scan terminal: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DetectionRecord is a recorded observer detection.
type DetectionRecord struct {
	Lineage          string
	Observer         string
	Serial           string
	ParticleID       int
	SourceEnergy     float64
	CurrentEnergy    float64
	X                float64
	Redshift         float64
	TrajectoryLength float64
}

// Detections lists a run's detections ordered by lineage then observer.
func (s *Store) Detections(runID string) ([]DetectionRecord, error) {
	rows, err := s.db.Query(`
		SELECT lineage, observer, serial, particle_id,
		       source_energy, current_energy, x, redshift, trajectory_length
		FROM detections WHERE run_id = ? ORDER BY lineage, observer
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read detections: %w", err)
	}
	defer rows.Close()

	var out []DetectionRecord
	for rows.Next() {
		var d DetectionRecord
		if err := rows.Scan(&d.Lineage, &d.Observer, &d.Serial, &d.ParticleID,
			&d.SourceEnergy, &d.CurrentEnergy, &d.X, &d.Redshift, &d.TrajectoryLength); err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// StepRecord is one recorded trajectory step.
type StepRecord struct {
	Index            int
	ParticleID       int
	Energy           float64
	X                float64
	Redshift         float64
	TrajectoryLength float64
}

// Steps lists one candidate's recorded trajectory in step order.
func (s *Store) Steps(runID, lineage string) ([]StepRecord, error) {
	rows, err := s.db.Query(`
		SELECT idx, particle_id, energy, x, redshift, trajectory_length
		FROM steps WHERE run_id = ? AND lineage = ? ORDER BY idx
	`, runID, lineage)
	if err != nil {
		return nil, fmt.Errorf("read steps: %w", err)
	}
	defer rows.Close()

	var out []StepRecord
	for rows.Next() {
		var r StepRecord
		if err := rows.Scan(&r.Index, &r.ParticleID, &r.Energy, &r.X, &r.Redshift, &r.TrajectoryLength); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
