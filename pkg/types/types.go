package types

import (
	"database/sql"
	"time"
)

// Job status codes as stored in the jobs table. Positive codes other than
// zero are terminal worker-specific failures.
const (
	JobStatusRunning        = 0
	JobStatusTransportError = -1
	JobStatusWorkerFailure  = -2
	JobStatusIntegrityError = -3
)

// Comparison modes accepted on admission.
const (
	ModeWholeStructure = 0
	ModeDomain         = 1
	ModeSegment        = 2
)

// ReuseNodeID marks a job that adopted a prior result archive instead of
// being dispatched to a node.
const ReuseNodeID = -1

// Request is a user's parameterized comparison submission, content-addressed
// by its fingerprint hash.
type Request struct {
	ID               int64     `db:"id" json:"id"`
	Reference        string    `db:"reference" json:"reference"`
	CandidatesListID int       `db:"candidates_list_id" json:"candidates_list_id"`
	CustomList       string    `db:"custom_list" json:"custom_list"`
	Uncached         string    `db:"uncached" json:"uncached"`
	HashValue        string    `db:"hash_value" json:"hash_value"`
	CreationDate     time.Time `db:"creation_date" json:"creation_date"`
	Meta             bool      `db:"meta" json:"meta"`
	GoTerm           string    `db:"go_term" json:"go_term"`
	ComparisonMode   int       `db:"comparison_mode" json:"comparison_mode"`
	SegmentStart     int       `db:"segment_start" json:"segment_start"`
	SegmentEnd       int       `db:"segment_end" json:"segment_end"`
	AlignmentLevel   int       `db:"alignment_level" json:"alignment_level"`
	Views            int64     `db:"views" json:"views"`
}

// NewRequest carries the insertable columns of a request row.
type NewRequest struct {
	Reference        string
	CandidatesListID int
	CustomList       string
	Uncached         string
	HashValue        string
	Meta             bool
	GoTerm           string
	ComparisonMode   int
	SegmentStart     int
	SegmentEnd       int
	AlignmentLevel   int
}

// PendingRequest is a queued request joined to its candidate list title.
type PendingRequest struct {
	Request
	ListName sql.NullString `db:"list_name"`
}

// EmptyPendingRequest returns the sentinel used when no pending request
// exists.
func EmptyPendingRequest() PendingRequest {
	var p PendingRequest
	p.ID = -1
	return p
}

// FinalizedRequest is a request row joined to the proof columns of its most
// recently completed job.
type FinalizedRequest struct {
	Request
	SecureHash string         `db:"secure_hash" json:"secure_hash"`
	ListName   sql.NullString `db:"list_name" json:"list_name"`
	StatusCode int            `db:"status_code" json:"status_code"`
}

// EmptyFinalizedRequest returns the sentinel shape served when the
// (hash, request id) pair is unknown.
func EmptyFinalizedRequest() FinalizedRequest {
	var f FinalizedRequest
	f.ID = -1
	f.CandidatesListID = -1
	f.ComparisonMode = -1
	f.SegmentStart = -1
	f.SegmentEnd = -1
	f.AlignmentLevel = -1
	f.Views = -1
	f.StatusCode = -1
	return f
}

// Job is one dispatch attempt of a request to a node. A job is terminal iff
// CompletionDate is set.
type Job struct {
	ID             int64        `db:"id"`
	RequestID      int64        `db:"request_id"`
	NodeID         int          `db:"node_id"`
	AssignmentDate time.Time    `db:"assignment_date"`
	CompletionDate sql.NullTime `db:"completion_date"`
	LastChecked    sql.NullTime `db:"last_checked"`
	StatusCode     int          `db:"status_code"`
	SecureHash     string       `db:"secure_hash"`
}

// NewJob carries the insertable columns of a job row.
type NewJob struct {
	RequestID      int64
	NodeID         int
	CompletionDate sql.NullTime
	StatusCode     int
	SecureHash     string
}

// RunningJob is a running job joined to its request's hash and mode and the
// assigned node's endpoint.
type RunningJob struct {
	ID             int64  `db:"id"`
	HashValue      string `db:"hash_value"`
	RequestID      int64  `db:"request_id"`
	NodeID         int    `db:"node_id"`
	NodeIP         string `db:"node_ip"`
	NodeDomain     string `db:"node_domain"`
	ComparisonMode int    `db:"comparison_mode"`
}

// Node is a worker server in the fleet, identified by its IP and TLS SNI
// domain.
type Node struct {
	ID       int       `db:"id"`
	IP       string    `db:"ip"`
	Domain   string    `db:"domain"`
	Active   bool      `db:"active"`
	Working  bool      `db:"working"`
	SyncDate time.Time `db:"sync_date"`
	Cores    int       `db:"cores"`
}

// EmptyNode returns the sentinel used when no node matches a query.
func EmptyNode() Node {
	return Node{ID: -1, Cores: -1}
}

// CachedFeatureID is a structure identifier whose precomputed features are
// present in the fleet-wide cache.
type CachedFeatureID struct {
	ID          int64  `db:"id"`
	StructureID string `db:"structure_id"`
}

// CandidateList is a named preset group of structure identifiers.
type CandidateList struct {
	ID    int    `db:"id" json:"id"`
	Title string `db:"title" json:"title"`
}
