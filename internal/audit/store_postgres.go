package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"caseform/internal/domain"
)

// PostgresStore persists audit events in the audit_events table. It uses
// database/sql so the same code runs against any postgres driver; production
// wiring registers lib/pq.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	query := `
		INSERT INTO audit_events (id, action, case_id, session_id, actor, detail, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		string(event.Action),
		string(event.CaseID),
		event.SessionID,
		event.Actor,
		event.Detail,
		event.RequestID,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCase(ctx context.Context, caseID domain.CaseID) ([]Event, error) {
	query := `
		SELECT action, case_id, session_id, actor, detail, request_id, occurred_at
		FROM audit_events
		WHERE case_id = $1
		ORDER BY occurred_at
	`
	rows, err := s.db.QueryContext(ctx, query, string(caseID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var action, caseID string
		if err := rows.Scan(&action, &caseID, &event.SessionID, &event.Actor,
			&event.Detail, &event.RequestID, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = Action(action)
		event.CaseID = domain.CaseID(caseID)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
