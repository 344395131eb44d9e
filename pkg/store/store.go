// Package store is the typed MariaDB access layer of the coordinator. Every
// operation acquires a pooled connection for the duration of a single call;
// all cross-loop coordination happens through these rows.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/machaonweb/machaonweb/pkg/types"
)

// Store wraps the pooled database handle.
type Store struct {
	db *sqlx.DB
}

// normalizeDSN forces parseTime on the connection so DATETIME columns scan
// into time.Time instead of raw bytes.
func normalizeDSN(databaseURL string) (string, error) {
	cfg, err := mysql.ParseDSN(databaseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// Open connects to the database named by the DSN and verifies the connection.
func Open(databaseURL string) (*Store, error) {
	dsn, err := normalizeDSN(databaseURL)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle. Used by tests.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertCachedIDs appends structure identifiers to the cached feature table.
// Callers filter duplicates; the table tolerates them.
func (s *Store) InsertCachedIDs(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q := sq.Insert("cached_features").Columns("structure_id")
	for _, id := range ids {
		q = q.Values(id)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert cached ids: %w", err)
	}
	return nil
}

// ListCachedIDs returns every cached structure identifier.
func (s *Store) ListCachedIDs() ([]types.CachedFeatureID, error) {
	var out []types.CachedFeatureID
	if err := s.db.Select(&out, "SELECT id, structure_id FROM cached_features"); err != nil {
		return nil, fmt.Errorf("failed to list cached ids: %w", err)
	}
	return out, nil
}

// ListCandidateLists returns the available preset candidate lists.
func (s *Store) ListCandidateLists() ([]types.CandidateList, error) {
	var out []types.CandidateList
	if err := s.db.Select(&out, "SELECT id, title FROM candidate_lists"); err != nil {
		return nil, fmt.Errorf("failed to list candidate lists: %w", err)
	}
	return out, nil
}

// VerifyCandidateList reports whether the preset list id exists.
func (s *Store) VerifyCandidateList(id int) (bool, error) {
	var found int
	err := s.db.Get(&found, "SELECT id FROM candidate_lists WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to verify candidate list: %w", err)
	}
	return true, nil
}

// CandidateListName returns the title of a preset list.
func (s *Store) CandidateListName(id int) (string, error) {
	var title string
	if err := s.db.Get(&title, "SELECT title FROM candidate_lists WHERE id = ?", id); err != nil {
		return "", fmt.Errorf("failed to get candidate list name: %w", err)
	}
	return title, nil
}

func (s *Store) countWhere(builder sq.SelectBuilder) (int64, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.Get(&n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}

// CountActiveNodes returns how many nodes are admin-enabled.
func (s *Store) CountActiveNodes() (int64, error) {
	return s.countWhere(sq.Select("COUNT(id)").From("nodes").Where(sq.Eq{"active": true}))
}

// CountIdleNodes returns how many nodes are active and not working.
func (s *Store) CountIdleNodes() (int64, error) {
	return s.countWhere(sq.Select("COUNT(id)").From("nodes").
		Where(sq.Eq{"active": true, "working": false}))
}

// CountRunningJobs returns how many jobs are currently executing.
func (s *Store) CountRunningJobs() (int64, error) {
	return s.countWhere(sq.Select("COUNT(r.id)").From("requests AS r").
		Join("jobs AS j ON r.id = j.request_id").
		Where("j.completion_date IS NULL").
		Where(sq.Eq{"j.status_code": types.JobStatusRunning}))
}

// CountQueuedRequests returns how many requests have no job row yet.
func (s *Store) CountQueuedRequests() (int64, error) {
	return s.countWhere(sq.Select("COUNT(r.id)").From("requests AS r").
		LeftJoin("jobs AS j ON r.id = j.request_id").
		Where("j.id IS NULL"))
}

// ListAvailableNodes returns active idle nodes, stalest sync first.
func (s *Store) ListAvailableNodes() ([]types.Node, error) {
	var out []types.Node
	err := s.db.Select(&out,
		`SELECT id, ip, domain, active, working, sync_date, cores
		 FROM nodes
		 WHERE active = 1 AND working = 0
		 ORDER BY sync_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list available nodes: %w", err)
	}
	return out, nil
}

// FindFulfilled returns the secure hash of the most recent successful job
// whose parent request matches the fingerprint triple, or "" when none does.
func (s *Store) FindFulfilled(hash string, meta bool, goTerm string) (string, error) {
	var secureHash string
	err := s.db.Get(&secureHash,
		`SELECT j.secure_hash
		 FROM jobs AS j
		 LEFT JOIN requests AS r ON j.request_id = r.id
		 WHERE j.status_code = 0
		   AND r.hash_value = ?
		   AND r.meta = ?
		   AND r.go_term = ?
		 ORDER BY r.id DESC
		 LIMIT 1`, hash, meta, goTerm)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up fulfilled request: %w", err)
	}
	return secureHash, nil
}

// FindRequestIDByHash returns the newest request id carrying the fingerprint,
// or -1 when none exists.
func (s *Store) FindRequestIDByHash(hash string) (int64, error) {
	var id int64
	err := s.db.Get(&id,
		"SELECT id FROM requests WHERE hash_value = ? ORDER BY id DESC LIMIT 1", hash)
	if errors.Is(err, sql.ErrNoRows) {
		return -1, nil
	}
	if err != nil {
		return -1, fmt.Errorf("failed to look up request by hash: %w", err)
	}
	return id, nil
}

const requestWithProofQuery = `
SELECT r.*,
       j.secure_hash AS secure_hash,
       cl.title AS list_name,
       j.status_code AS status_code
FROM requests AS r
INNER JOIN jobs AS j ON r.id = j.request_id
LEFT JOIN candidate_lists AS cl ON r.candidates_list_id = cl.id
WHERE r.id = ? AND r.hash_value = ?
ORDER BY j.completion_date DESC
LIMIT 1`

// FindRequestWithProof joins a request to the proof columns of its latest
// terminal job. The boolean reports whether the pair was found.
func (s *Store) FindRequestWithProof(id int64, hash string) (types.FinalizedRequest, bool, error) {
	var out types.FinalizedRequest
	err := s.db.Get(&out, requestWithProofQuery, id, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return types.EmptyFinalizedRequest(), false, nil
	}
	if err != nil {
		return types.EmptyFinalizedRequest(), false, fmt.Errorf("failed to load request proof: %w", err)
	}
	return out, true, nil
}

// InsertRequest creates a new request row. creation_date and views use their
// column defaults.
func (s *Store) InsertRequest(nr types.NewRequest) error {
	_, err := s.db.Exec(
		`INSERT INTO requests
		 (reference, candidates_list_id, custom_list, uncached, hash_value,
		  meta, go_term, comparison_mode, segment_start, segment_end, alignment_level)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nr.Reference, nr.CandidatesListID, nr.CustomList, nr.Uncached, nr.HashValue,
		nr.Meta, nr.GoTerm, nr.ComparisonMode, nr.SegmentStart, nr.SegmentEnd, nr.AlignmentLevel)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

// InsertJob creates a new job row. assignment_date uses the column default.
func (s *Store) InsertJob(nj types.NewJob) error {
	_, err := s.db.Exec(
		`INSERT INTO jobs (request_id, node_id, completion_date, status_code, secure_hash)
		 VALUES (?, ?, ?, ?, ?)`,
		nj.RequestID, nj.NodeID, nj.CompletionDate, nj.StatusCode, nj.SecureHash)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// UpdateViews increments the view counter of a request.
func (s *Store) UpdateViews(requestID int64) error {
	_, err := s.db.Exec("UPDATE requests SET views = views + 1 WHERE id = ?", requestID)
	if err != nil {
		return fmt.Errorf("failed to update views: %w", err)
	}
	return nil
}

// UpdateJobStatus sets the status code of a job.
func (s *Store) UpdateJobStatus(jobID int64, status int) error {
	_, err := s.db.Exec("UPDATE jobs SET status_code = ? WHERE id = ?", status, jobID)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

// UpdateJobCheck stamps the last probe time of a job.
func (s *Store) UpdateJobCheck(jobID int64) error {
	_, err := s.db.Exec("UPDATE jobs SET last_checked = NOW() WHERE id = ?", jobID)
	if err != nil {
		return fmt.Errorf("failed to update job check: %w", err)
	}
	return nil
}

// FinalizeJob marks a job terminal, recording the archive hash and status.
func (s *Store) FinalizeJob(jobID int64, secureHash string, status int) error {
	_, err := s.db.Exec(
		`UPDATE jobs SET last_checked = NOW(), completion_date = NOW(),
		 secure_hash = ?, status_code = ? WHERE id = ?`,
		secureHash, status, jobID)
	if err != nil {
		return fmt.Errorf("failed to finalize job: %w", err)
	}
	return nil
}

// SetNodeWorking flips the working flag of a node.
func (s *Store) SetNodeWorking(nodeID int, working bool) error {
	_, err := s.db.Exec("UPDATE nodes SET working = ? WHERE id = ?", working, nodeID)
	if err != nil {
		return fmt.Errorf("failed to update node working state: %w", err)
	}
	return nil
}

// ClaimNode atomically flips an idle node to working. It reports false when
// another loop claimed the node first.
func (s *Store) ClaimNode(nodeID int) (bool, error) {
	res, err := s.db.Exec("UPDATE nodes SET working = 1 WHERE id = ? AND working = 0", nodeID)
	if err != nil {
		return false, fmt.Errorf("failed to claim node: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateNodeSyncDate stamps the last successful cache push of a node.
func (s *Store) UpdateNodeSyncDate(nodeID int) error {
	_, err := s.db.Exec("UPDATE nodes SET sync_date = NOW() WHERE id = ?", nodeID)
	if err != nil {
		return fmt.Errorf("failed to update node sync date: %w", err)
	}
	return nil
}

// UncachedOf returns the subset of ids absent from the cached feature table,
// preserving input order and duplicates.
func (s *Store) UncachedOf(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sq.Select("structure_id").From("cached_features").
		Where(sq.Eq{"structure_id": ids}).ToSql()
	if err != nil {
		return nil, err
	}
	var cached []string
	if err := s.db.Select(&cached, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query cached ids: %w", err)
	}
	known := make(map[string]struct{}, len(cached))
	for _, id := range cached {
		known[id] = struct{}{}
	}
	var uncached []string
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			uncached = append(uncached, id)
		}
	}
	return uncached, nil
}

// RecentRequestExists reports whether any request was created within a
// lookout window drawn uniformly from 2..4 minutes. The randomized window is
// the admission throttle.
func (s *Store) RecentRequestExists() (bool, error) {
	window := rand.Intn(3) + 2
	var id int64
	err := s.db.Get(&id,
		"SELECT id FROM requests WHERE TIMESTAMPDIFF(MINUTE, creation_date, NOW()) <= ? LIMIT 1",
		window)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check recent requests: %w", err)
	}
	return true, nil
}

const nextPendingRequestQuery = `
SELECT r.*, c.title AS list_name
FROM requests AS r
INNER JOIN
  (SELECT MIN(r.id) AS id
   FROM requests AS r
   LEFT JOIN jobs AS j ON r.id = j.request_id
   WHERE j.id IS NULL) AS p
ON r.id = p.id
LEFT JOIN candidate_lists AS c ON r.candidates_list_id = c.id
LIMIT 1`

// NextPendingRequest returns the oldest request without a job row, joined to
// its candidate list title. The boolean reports whether one exists.
func (s *Store) NextPendingRequest() (types.PendingRequest, bool, error) {
	var out types.PendingRequest
	err := s.db.Get(&out, nextPendingRequestQuery)
	if errors.Is(err, sql.ErrNoRows) {
		return types.EmptyPendingRequest(), false, nil
	}
	if err != nil {
		return types.EmptyPendingRequest(), false, fmt.Errorf("failed to load pending request: %w", err)
	}
	return out, true, nil
}

const nextRunningJobQuery = `
SELECT j.id AS id,
       r.hash_value AS hash_value,
       r.id AS request_id,
       n.id AS node_id,
       n.ip AS node_ip,
       n.domain AS node_domain,
       r.comparison_mode AS comparison_mode
FROM jobs AS j
INNER JOIN requests AS r ON r.id = j.request_id
INNER JOIN nodes AS n ON n.id = j.node_id
WHERE j.completion_date IS NULL AND j.status_code = 0
ORDER BY RAND()
LIMIT 1`

// NextRunningJob returns a uniformly random running job joined to its
// request's hash and mode and the node's endpoint.
func (s *Store) NextRunningJob() (types.RunningJob, bool, error) {
	var out types.RunningJob
	err := s.db.Get(&out, nextRunningJobQuery)
	if errors.Is(err, sql.ErrNoRows) {
		return types.RunningJob{}, false, nil
	}
	if err != nil {
		return types.RunningJob{}, false, fmt.Errorf("failed to load running job: %w", err)
	}
	return out, true, nil
}

const nextStaleNodeQuery = `
SELECT n.id, n.ip, n.domain, n.active, n.working, n.sync_date, n.cores
FROM nodes AS n
INNER JOIN
  (SELECT MIN(sync_date) AS last_synced FROM nodes) AS l
ON n.sync_date = l.last_synced
WHERE n.active = 1 AND n.working = 0
ORDER BY n.cores
LIMIT 1`

// NextStaleNode returns the active idle node holding the globally minimum
// sync date, ties broken by ascending core count. A busy or disabled stalest
// node yields no result until it frees up.
func (s *Store) NextStaleNode() (types.Node, bool, error) {
	var out types.Node
	err := s.db.Get(&out, nextStaleNodeQuery)
	if errors.Is(err, sql.ErrNoRows) {
		return types.EmptyNode(), false, nil
	}
	if err != nil {
		return types.EmptyNode(), false, fmt.Errorf("failed to load stale node: %w", err)
	}
	return out, true, nil
}

const uncachedSinceQuery = `
SELECT r.uncached
FROM requests AS r
INNER JOIN jobs AS j ON r.id = j.request_id
INNER JOIN nodes AS n ON n.id = j.node_id AND n.id <> ?
WHERE r.uncached <> ''
  AND j.assignment_date > ?
  AND j.status_code = 0`

// UncachedSince returns the uncached column of every successful request whose
// job ran on another node after the given time. Each entry is a CSV of
// structure identifiers.
func (s *Store) UncachedSince(excludeNodeID int, since time.Time) ([]string, error) {
	var out []string
	if err := s.db.Select(&out, uncachedSinceQuery, excludeNodeID, since); err != nil {
		return nil, fmt.Errorf("failed to load uncached deltas: %w", err)
	}
	return out, nil
}
