package store

import (
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machaonweb/machaonweb/pkg/types"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(sqlx.NewDb(db, "mysql")), mock
}

func TestNormalizeDSNForcesParseTime(t *testing.T) {
	dsn, err := normalizeDSN("user:pass@tcp(localhost:3306)/machaonweb")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")

	// An explicit opt-out is overridden; DATETIME columns must scan as time.Time.
	dsn, err = normalizeDSN("user:pass@tcp(localhost:3306)/machaonweb?parseTime=false&charset=utf8mb4")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestNormalizeDSNRejectsGarbage(t *testing.T) {
	// No slash separating the database name.
	_, err := normalizeDSN("user:pass@tcp(localhost:3306)")
	assert.Error(t, err)
}

// throttleWindow matches the randomized lookout window of the throttle query.
type throttleWindow struct{}

func (throttleWindow) Match(v driver.Value) bool {
	n, ok := v.(int64)
	return ok && n >= 2 && n <= 4
}

func TestRecentRequestExists(t *testing.T) {
	tests := []struct {
		name string
		rows *sqlmock.Rows
		want bool
	}{
		{name: "recent request throttles", rows: sqlmock.NewRows([]string{"id"}).AddRow(7), want: true},
		{name: "quiet window admits", rows: sqlmock.NewRows([]string{"id"}), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectQuery(regexp.QuoteMeta(
				"SELECT id FROM requests WHERE TIMESTAMPDIFF(MINUTE, creation_date, NOW()) <= ? LIMIT 1")).
				WithArgs(throttleWindow{}).
				WillReturnRows(tt.rows)

			got, err := s.RecentRequestExists()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRecentRequestExistsWindowStaysInRange(t *testing.T) {
	s, mock := newMockStore(t)
	for i := 0; i < 20; i++ {
		mock.ExpectQuery("SELECT id FROM requests WHERE TIMESTAMPDIFF").
			WithArgs(throttleWindow{}).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
	}

	for i := 0; i < 20; i++ {
		_, err := s.RecentRequestExists()
		require.NoError(t, err)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimNode(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
		wantClaimed  bool
	}{
		{name: "idle node is claimed", rowsAffected: 1, wantClaimed: true},
		{name: "busy node is not claimed", rowsAffected: 0, wantClaimed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectExec(regexp.QuoteMeta(
				"UPDATE nodes SET working = 1 WHERE id = ? AND working = 0")).
				WithArgs(3).
				WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))

			claimed, err := s.ClaimNode(3)
			require.NoError(t, err)
			assert.Equal(t, tt.wantClaimed, claimed)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUncachedOfPreservesOrderAndDuplicates(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT structure_id FROM cached_features").
		WillReturnRows(sqlmock.NewRows([]string{"structure_id"}).AddRow("1ABC_A"))

	got, err := s.UncachedOf([]string{"9XYZ_B", "1ABC_A", "9XYZ_B", "2DEF_C"})
	require.NoError(t, err)
	assert.Equal(t, []string{"9XYZ_B", "9XYZ_B", "2DEF_C"}, got)
}

func TestUncachedOfEmptyInput(t *testing.T) {
	s, _ := newMockStore(t)
	got, err := s.UncachedOf(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindRequestIDByHashMissing(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id FROM requests WHERE hash_value").
		WithArgs("12345").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	id, err := s.FindRequestIDByHash("12345")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), id)
}

func TestFindFulfilled(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT j.secure_hash").
		WithArgs("777", true, "GO:0005515").
		WillReturnRows(sqlmock.NewRows([]string{"secure_hash"}).AddRow("deadbeef"))

	hash, err := s.FindFulfilled("777", true, "GO:0005515")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", hash)
}

func TestFindFulfilledMissing(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT j.secure_hash").
		WithArgs("777", false, "").
		WillReturnRows(sqlmock.NewRows([]string{"secure_hash"}))

	hash, err := s.FindFulfilled("777", false, "")
	require.NoError(t, err)
	assert.Equal(t, "", hash)
}

func TestNextPendingRequestNone(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT r\\.\\*, c\\.title AS list_name").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	pending, found, err := s.NextPendingRequest()
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, int64(-1), pending.ID)
}

func TestNextStaleNode(t *testing.T) {
	s, mock := newMockStore(t)
	synced := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT n\\.id, n\\.ip").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "ip", "domain", "active", "working", "sync_date", "cores"}).
			AddRow(2, "10.0.0.2", "node2.machaonweb.com", true, false, synced, 8))

	node, found, err := s.NextStaleNode()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, node.ID)
	assert.Equal(t, "node2.machaonweb.com", node.Domain)
	assert.Equal(t, 8, node.Cores)
}

func TestCountIdleNodes(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT COUNT\\(id\\) FROM nodes").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := s.CountIdleNodes()
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestFinalizeJob(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE jobs SET last_checked = NOW\\(\\), completion_date = NOW\\(\\)").
		WithArgs("cafebabe", types.JobStatusRunning, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.FinalizeJob(9, "cafebabe", types.JobStatusRunning))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateJobStatus(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status_code = ? WHERE id = ?")).
		WithArgs(types.JobStatusWorkerFailure, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpdateJobStatus(9, types.JobStatusWorkerFailure))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCachedIDs(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, structure_id FROM cached_features")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "structure_id"}).
			AddRow(1, "1ABC_A").
			AddRow(2, "AF-P12345-F1-model_v4_A"))

	ids, err := s.ListCachedIDs()
	require.NoError(t, err)
	assert.Equal(t, []types.CachedFeatureID{
		{ID: 1, StructureID: "1ABC_A"},
		{ID: 2, StructureID: "AF-P12345-F1-model_v4_A"},
	}, ids)
}

func TestCandidateListName(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT title FROM candidate_lists WHERE id = ?")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"title"}).AddRow("Mammals 1"))

	title, err := s.CandidateListName(3)
	require.NoError(t, err)
	assert.Equal(t, "Mammals 1", title)
}

func TestUncachedSince(t *testing.T) {
	s, mock := newMockStore(t)
	since := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT r\\.uncached").
		WithArgs(1, since).
		WillReturnRows(sqlmock.NewRows([]string{"uncached"}).
			AddRow("1ABC_A,2DEF_B").
			AddRow("AF-P12345-F1-MODEL_V4_A"))

	got, err := s.UncachedSince(1, since)
	require.NoError(t, err)
	assert.Equal(t, []string{"1ABC_A,2DEF_B", "AF-P12345-F1-MODEL_V4_A"}, got)
}
