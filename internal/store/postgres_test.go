package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bbb-collector/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs \(id, base_url, pages, status, created_at, updated_at\)`).
		WithArgs(pgxmock.AnyArg(), "https://www.bbb.org/search?find_text=x", 2, "running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "https://www.bbb.org/search?find_text=x", 2)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.Equal(t, 2, run.Pages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).WillReturnError(errors.New("connection refused"))

	_, err := s.CreateRun(context.Background(), "u", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: insert run")
}

func TestPostgresStore_CompleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	stats := &model.RunStats{PagesRequested: 2, Records: 15}
	statsJSON, _ := json.Marshal(stats)

	mock.ExpectExec(`UPDATE runs SET status = \$1, stats = \$2`).
		WithArgs("complete", statsJSON, pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.CompleteRun(context.Background(), "run-1", stats))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("complete", pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), "missing", &model.RunStats{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestPostgresStore_FailRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status = \$1, error = \$2`).
		WithArgs("failed", "configuration: missing model API key", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.FailRun(context.Background(), "run-1", &model.ConfigurationError{Missing: []string{"model API key"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "base_url", "pages", "status", "stats", "error", "created_at", "updated_at"}).
		AddRow("run-1", "https://www.bbb.org/search", 3, "complete", []byte(`{"records":4}`), nil, now, now)
	mock.ExpectQuery(`SELECT id, base_url, pages, status, stats, error, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Stats)
	assert.Equal(t, 4, run.Stats.Records)
	assert.Empty(t, run.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_StatusFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	runErr := "boom"

	rows := pgxmock.NewRows([]string{"id", "base_url", "pages", "status", "stats", "error", "created_at", "updated_at"}).
		AddRow("run-2", "u", 1, "failed", nil, &runErr, now, now)
	mock.ExpectQuery(`FROM runs WHERE status = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("failed", 10, 0).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: model.RunStatusFailed, Limit: 10})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "boom", runs[0].Error)
	assert.Nil(t, runs[0].Stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveBusinesses(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"businesses"}, businessColumns).WillReturnResult(2)

	n, err := s.SaveBusinesses(context.Background(), "run-1", SourceBrowser, []model.BusinessRecord{
		{Name: "Acme Billing", URL: "https://www.bbb.org/x/acme-1", AccreditationStatus: "true"},
		{Name: "Globex", URL: "https://www.bbb.org/x/globex", AccreditationStatus: "false"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveBusinesses_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	n, err := s.SaveBusinesses(context.Background(), "run-1", SourceBrowser, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListBusinesses(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	id := "12345"
	phone := "+14155551234"

	rows := pgxmock.NewRows(businessColumns).
		AddRow("b-1", "run-1", &id, "Acme Billing", &phone, nil, "https://www.bbb.org/x/acme-12345", "true", nil, SourceBrowser, now)
	mock.ExpectQuery(`FROM businesses WHERE run_id = \$1 AND source = \$2 ORDER BY scraped_at DESC, url LIMIT \$3 OFFSET \$4`).
		WithArgs("run-1", SourceBrowser, 100, 0).
		WillReturnRows(rows)

	got, err := s.ListBusinesses(context.Background(), BusinessFilter{RunID: "run-1", Source: SourceBrowser})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Acme Billing", got[0].Name)
	assert.Equal(t, "12345", got[0].BusinessRecord.ID())
	assert.Equal(t, "+14155551234", *got[0].Phone)
	assert.Nil(t, got[0].Address)
	assert.NoError(t, mock.ExpectationsWereMet())
}
