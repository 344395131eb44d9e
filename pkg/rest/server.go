// Package rest serves the public HTTPS surface of the coordinator: the
// static frontend, the submission and result endpoints and the network
// status endpoints. Endpoint handlers answer 200 with a neutral body when
// the backing infrastructure fails; the failure only reaches the logs.
package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/machaonweb/machaonweb/pkg/admission"
	"github.com/machaonweb/machaonweb/pkg/log"
	"github.com/machaonweb/machaonweb/pkg/metrics"
	"github.com/machaonweb/machaonweb/pkg/types"
)

// restLogger returns an addressable component logger so zerolog's
// pointer-receiver level methods can be chained on it.
func restLogger() *zerolog.Logger {
	l := log.WithComponent("rest")
	return &l
}

// Store is the slice of the persistence layer the REST handlers need.
type Store interface {
	CountActiveNodes() (int64, error)
	CountRunningJobs() (int64, error)
	CountQueuedRequests() (int64, error)
	ListCandidateLists() ([]types.CandidateList, error)
	FindRequestWithProof(id int64, hash string) (types.FinalizedRequest, bool, error)
	UpdateViews(requestID int64) error
}

// Config carries the server addresses, paths and CORS origins.
type Config struct {
	IP           string
	Port         int
	SSLCertsPath string
	FrontendPath string
	OutputPath   string
	CORSURLs     []string
}

// Server is the coordinator's HTTPS server.
type Server struct {
	store     Store
	admitter  *admission.Service
	cfg       Config
	outputDir string
}

// NewServer builds the REST server.
func NewServer(store Store, admitter *admission.Service, cfg Config) *Server {
	return &Server{
		store:     store,
		admitter:  admitter,
		cfg:       cfg,
		outputDir: cfg.OutputPath,
	}
}

// Router assembles the endpoint routes, the metrics handler and the static
// frontend with an index.html fallback for client-side routing.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/resultdata/{hash}/{request_id}", s.fetchResult).Methods(http.MethodGet)
	r.HandleFunc("/request", s.receiveRequest).Methods(http.MethodPost)
	r.HandleFunc("/info", s.getInfo).Methods(http.MethodGet)
	r.HandleFunc("/lists", s.getCandidateLists).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(spaHandler{root: s.cfg.FrontendPath})

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.cfg.CORSURLs),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return cors(r)
}

// ListenAndServe serves the router over TLS until the server fails.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.IP, s.cfg.Port)
	certFile := filepath.Join(s.cfg.SSLCertsPath, "machaonweb.com.crt")
	keyFile := filepath.Join(s.cfg.SSLCertsPath, "myserver.key")

	restLogger().Info().Str("addr", addr).Msg("serving https")
	return http.ListenAndServeTLS(addr, certFile, keyFile, s.Router())
}

// submissionPayload mirrors the frontend's JSON body. Absent fields fall
// back to -1, "" or false.
type submissionPayload struct {
	CandidateList  *int    `json:"candidateList"`
	CustomList     *string `json:"customList"`
	Reference      *string `json:"reference"`
	Token          *string `json:"token"`
	ComparisonMode *int    `json:"comparisonMode"`
	AlignmentLevel *int    `json:"alignmentLevel"`
	SegmentStart   *int    `json:"segmentStart"`
	SegmentEnd     *int    `json:"segmentEnd"`
	Meta           *bool   `json:"meta"`
}

func (p submissionPayload) toSubmission() admission.Submission {
	return admission.Submission{
		CandidateList:  intOr(p.CandidateList, -1),
		CustomList:     strOr(p.CustomList),
		Reference:      strOr(p.Reference),
		Token:          strOr(p.Token),
		ComparisonMode: intOr(p.ComparisonMode, -1),
		AlignmentLevel: intOr(p.AlignmentLevel, -1),
		SegmentStart:   intOr(p.SegmentStart, -1),
		SegmentEnd:     intOr(p.SegmentEnd, -1),
		Meta:           p.Meta != nil && *p.Meta,
	}
}

// receiveRequest admits a user submission. Infrastructure failures answer
// status code 1 so the frontend can tell them apart from rejections.
func (s *Server) receiveRequest(w http.ResponseWriter, r *http.Request) {
	metrics.HTTPRequestsTotal.WithLabelValues("request").Inc()

	var payload submissionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		restLogger().Debug().Err(err).Msg("bad submission body")
		writeJSON(w, admission.Response{StatusCode: 1, Hash: "", RequestID: -1})
		return
	}

	resp, err := s.admitter.CreateRequest(r.Context(), payload.toSubmission())
	if err != nil {
		restLogger().Debug().Err(err).Msg("admission failed")
		resp = admission.Response{StatusCode: 1, Hash: "", RequestID: -1}
	}
	metrics.RequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	writeJSON(w, resp)
}

// info is the network status summary.
type info struct {
	Nodes  int64 `json:"nodes"`
	Jobs   int64 `json:"jobs"`
	Queued int64 `json:"queued"`
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	metrics.HTTPRequestsTotal.WithLabelValues("info").Inc()

	var out info
	var err error
	if out.Nodes, err = s.store.CountActiveNodes(); err != nil {
		restLogger().Debug().Err(err).Msg("node count failed")
		out = info{}
	} else if out.Jobs, err = s.store.CountRunningJobs(); err != nil {
		restLogger().Debug().Err(err).Msg("job count failed")
		out = info{}
	} else if out.Queued, err = s.store.CountQueuedRequests(); err != nil {
		restLogger().Debug().Err(err).Msg("queue count failed")
		out = info{}
	}
	writeJSON(w, out)
}

func (s *Server) getCandidateLists(w http.ResponseWriter, r *http.Request) {
	metrics.HTTPRequestsTotal.WithLabelValues("lists").Inc()

	lists, err := s.store.ListCandidateLists()
	if err != nil {
		restLogger().Debug().Err(err).Msg("list lookup failed")
		lists = nil
	}
	if lists == nil {
		lists = []types.CandidateList{}
	}
	writeJSON(w, lists)
}

// finalizedRequestJSON is the wire form of a finalized request. The list
// name serializes as null when the request used a custom list.
type finalizedRequestJSON struct {
	types.Request
	SecureHash string  `json:"secure_hash"`
	ListName   *string `json:"list_name"`
	StatusCode int     `json:"status_code"`
}

// requestResult pairs a finalized request with the html reports available
// for quick view, grouped by UI label.
type requestResult struct {
	Request finalizedRequestJSON `json:"request"`
	Files   map[string][]string  `json:"files"`
}

func toRequestJSON(row types.FinalizedRequest) finalizedRequestJSON {
	out := finalizedRequestJSON{
		Request:    row.Request,
		SecureHash: row.SecureHash,
		StatusCode: row.StatusCode,
	}
	if row.ListName.Valid {
		name := row.ListName.String
		out.ListName = &name
	}
	return out
}

// fetchResult answers the result lookup for a (hash, request id) pair. An
// unknown pair, a bad id or a store failure all yield the sentinel request
// with no files.
func (s *Server) fetchResult(w http.ResponseWriter, r *http.Request) {
	metrics.HTTPRequestsTotal.WithLabelValues("resultdata").Inc()

	vars := mux.Vars(r)
	hash := vars["hash"]
	requestID, err := strconv.ParseInt(vars["request_id"], 10, 64)
	if err != nil {
		writeJSON(w, requestResult{
			Request: toRequestJSON(types.EmptyFinalizedRequest()),
			Files:   map[string][]string{},
		})
		return
	}

	row, _, err := s.store.FindRequestWithProof(requestID, hash)
	if err != nil {
		restLogger().Debug().Err(err).Msg("result lookup failed")
		row = types.EmptyFinalizedRequest()
	}

	files := map[string][]string{}
	if row.ID > 0 {
		files = htmlFilenames(row.HashValue, row.Meta, row.GoTerm, s.outputDir)
		if err := s.store.UpdateViews(requestID); err != nil {
			restLogger().Debug().Err(err).Msg("view count update failed")
		}
	}
	writeJSON(w, requestResult{Request: toRequestJSON(row), Files: files})
}

// Report filename suffixes produced by the comparison pipeline.
const (
	clusterReportSuffix  = "-merged-notenriched_report.html"
	topReportSuffix      = "-merged-enriched_eval_report.html"
	topHumanReportSuffix = "-merged-h-enriched_report.html"
	goTermReportSuffix   = "-pres_report.html"
)

// htmlFilenames groups the html reports of a request by UI label. The
// enrichment reports only surface for meta-analysis requests and the GO term
// report only when the request named a term.
func htmlFilenames(hashValue string, meta bool, goTerm, rootPath string) map[string][]string {
	out := map[string][]string{}
	if _, err := os.Stat(rootPath); err != nil {
		return out
	}

	matches, err := filepath.Glob(filepath.Join(rootPath, hashValue, "*.html"))
	if err != nil {
		return out
	}
	for _, match := range matches {
		name := filepath.Base(match)
		if name == "" {
			continue
		}
		if strings.Contains(name, clusterReportSuffix) {
			out["cluster"] = append(out["cluster"], name)
		}
		if !meta {
			continue
		}
		if strings.Contains(name, topReportSuffix) {
			out["top"] = append(out["top"], name)
		}
		if strings.Contains(name, topHumanReportSuffix) {
			out["topHuman"] = append(out["topHuman"], name)
		}
		if goTerm == "" {
			continue
		}
		if strings.Contains(name, goTermReportSuffix) && strings.Contains(name, goTerm) {
			out["goTerm"] = append(out["goTerm"], name)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		restLogger().Debug().Err(err).Msg("response encoding failed")
	}
}

func intOr(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}

func strOr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// spaHandler serves the static frontend, falling back to index.html for
// paths handled by the client-side router.
type spaHandler struct {
	root string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(h.root, filepath.Clean("/"+r.URL.Path))
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		http.ServeFile(w, r, filepath.Join(h.root, "index.html"))
		return
	}
	http.ServeFile(w, r, path)
}
