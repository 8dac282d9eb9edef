package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/varun/sleuth/internal/fault"
)

// PlanStore is durable key-value persistence of plans, one record per
// plan id. All status mutation goes through the compare-and-swap
// UpdateStatus write; nothing else touches a stored record.
type PlanStore struct {
	DB *sql.DB
}

func NewPlanStore(dbPath string) (*PlanStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	schema := `CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		repo_id TEXT NOT NULL,
		query TEXT NOT NULL,
		status TEXT NOT NULL,
		signature TEXT NOT NULL DEFAULT '',
		approved_by TEXT NOT NULL DEFAULT '',
		steps_json TEXT NOT NULL,
		results_json TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		completed_at DATETIME
	);`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	return &PlanStore{DB: db}, nil
}

func (s *PlanStore) Close() error {
	return s.DB.Close()
}

// Create persists a new plan record.
func (s *PlanStore) Create(p *Plan) error {
	stepsJSON, err := json.Marshal(p.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	_, err = s.DB.Exec(
		`INSERT INTO plans (id, repo_id, query, status, steps_json, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.RepoID, p.Query, string(p.Status), string(stepsJSON), p.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert plan %s: %w", p.ID, err)
	}
	return nil
}

// Get loads a plan by id.
func (s *PlanStore) Get(id string) (*Plan, error) {
	row := s.DB.QueryRow(
		`SELECT id, repo_id, query, status, signature, approved_by, steps_json, results_json, created_at, completed_at FROM plans WHERE id = ?`,
		id,
	)

	var p Plan
	var status, stepsJSON, resultsJSON string
	var completedAt sql.NullTime
	err := row.Scan(&p.ID, &p.RepoID, &p.Query, &status, &p.Signature, &p.ApprovedBy, &stepsJSON, &resultsJSON, &p.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("plan %s: %w", id, fault.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan %s: %w", id, err)
	}

	p.Status = Status(status)
	if err := json.Unmarshal([]byte(stepsJSON), &p.Steps); err != nil {
		return nil, fmt.Errorf("decode steps for plan %s: %w", id, err)
	}
	if resultsJSON != "" {
		if err := json.Unmarshal([]byte(resultsJSON), &p.Results); err != nil {
			return nil, fmt.Errorf("decode results for plan %s: %w", id, err)
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		p.CompletedAt = &t
	}
	return &p, nil
}

// Patch carries the optional fields a status transition may write
// alongside the new status.
type Patch struct {
	Signature   *string
	ApprovedBy  *string
	Results     []StepResult
	CompletedAt *time.Time
}

// UpdateStatus is a compare-and-swap on the stored status: the write
// happens only if the on-disk status still equals from, otherwise it
// fails with Conflict and writes nothing. Backward transitions are
// refused outright.
func (s *PlanStore) UpdateStatus(id string, from, to Status, patch *Patch) error {
	if !from.Forward(to) {
		return fmt.Errorf("transition %s -> %s is not forward: %w", from, to, fault.ErrConflict)
	}

	query := `UPDATE plans SET status = ?`
	args := []any{string(to)}

	if patch != nil {
		if patch.Signature != nil {
			query += `, signature = ?`
			args = append(args, *patch.Signature)
		}
		if patch.ApprovedBy != nil {
			query += `, approved_by = ?`
			args = append(args, *patch.ApprovedBy)
		}
		if patch.Results != nil {
			resultsJSON, err := json.Marshal(patch.Results)
			if err != nil {
				return fmt.Errorf("marshal results: %w", err)
			}
			query += `, results_json = ?`
			args = append(args, string(resultsJSON))
		}
		if patch.CompletedAt != nil {
			query += `, completed_at = ?`
			args = append(args, patch.CompletedAt.UTC())
		}
	}

	query += ` WHERE id = ? AND status = ?`
	args = append(args, id, string(from))

	res, err := s.DB.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("update plan %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update plan %s: %w", id, err)
	}
	if n == 0 {
		// Either the plan is unknown or another actor moved it first.
		var exists int
		if err := s.DB.QueryRow(`SELECT 1 FROM plans WHERE id = ?`, id).Scan(&exists); err == sql.ErrNoRows {
			return fmt.Errorf("plan %s: %w", id, fault.ErrNotFound)
		}
		return fmt.Errorf("plan %s is no longer %s: %w", id, from, fault.ErrConflict)
	}
	return nil
}

// ListByStatus returns plan ids currently in the given status, oldest
// first. Used by the background runner to pick up approved plans.
func (s *PlanStore) ListByStatus(status Status) ([]string, error) {
	rows, err := s.DB.Query(`SELECT id FROM plans WHERE status = ? ORDER BY created_at ASC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
