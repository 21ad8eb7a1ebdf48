//go:build integration

package audit_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"caseform/internal/audit"
)

const auditSchema = `
CREATE TABLE audit_events (
	id          UUID PRIMARY KEY,
	action      TEXT NOT NULL,
	case_id     TEXT NOT NULL DEFAULT '',
	session_id  TEXT NOT NULL DEFAULT '',
	actor       TEXT NOT NULL DEFAULT '',
	detail      TEXT NOT NULL DEFAULT '',
	request_id  TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL
);
`

type PostgresStoreSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	db        *sql.DB
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("caseform"),
		tcpostgres.WithUsername("caseform"),
		tcpostgres.WithPassword("caseform"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sql.Open("postgres", dsn)
	s.Require().NoError(err)
	s.db = db

	_, err = db.ExecContext(ctx, auditSchema)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.db.ExecContext(context.Background(), `TRUNCATE audit_events`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestAppendAndListByCase() {
	ctx := context.Background()
	store := audit.NewPostgresStore(s.db)

	first := audit.Event{
		Action:    audit.ActionCaseCreated,
		CaseID:    "CASE-1",
		SessionID: "sess-1",
		Actor:     "abogado@firma.co",
		Timestamp: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	second := audit.Event{
		Action:    audit.ActionGeneralSaved,
		CaseID:    "CASE-1",
		Detail:    "city=Barranquilla",
		Timestamp: time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC),
	}
	other := audit.Event{
		Action: audit.ActionCaseCreated,
		CaseID: "CASE-2",
	}

	s.Require().NoError(store.Append(ctx, second))
	s.Require().NoError(store.Append(ctx, first))
	s.Require().NoError(store.Append(ctx, other))

	events, err := store.ListByCase(ctx, "CASE-1")
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(audit.ActionCaseCreated, events[0].Action, "ordered by occurrence time")
	s.Equal(audit.ActionGeneralSaved, events[1].Action)
	s.Equal("abogado@firma.co", events[0].Actor)
	s.Equal("city=Barranquilla", events[1].Detail)
}

func (s *PostgresStoreSuite) TestAppendStampsMissingTimestamp() {
	ctx := context.Background()
	store := audit.NewPostgresStore(s.db)

	s.Require().NoError(store.Append(ctx, audit.Event{
		Action: audit.ActionSessionCreated,
		CaseID: "CASE-3",
	}))

	events, err := store.ListByCase(ctx, "CASE-3")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.False(events[0].Timestamp.IsZero())
}
