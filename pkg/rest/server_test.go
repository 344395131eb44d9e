package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machaonweb/machaonweb/pkg/admission"
	"github.com/machaonweb/machaonweb/pkg/types"
)

type fakeRestStore struct {
	activeNodes int64
	runningJobs int64
	queued      int64
	lists       []types.CandidateList
	result      types.FinalizedRequest
	resultFound bool

	viewUpdates []int64
}

func (f *fakeRestStore) CountActiveNodes() (int64, error) { return f.activeNodes, nil }

func (f *fakeRestStore) CountRunningJobs() (int64, error) { return f.runningJobs, nil }

func (f *fakeRestStore) CountQueuedRequests() (int64, error) { return f.queued, nil }

func (f *fakeRestStore) ListCandidateLists() ([]types.CandidateList, error) {
	return f.lists, nil
}

func (f *fakeRestStore) FindRequestWithProof(id int64, hash string) (types.FinalizedRequest, bool, error) {
	if !f.resultFound {
		return types.EmptyFinalizedRequest(), false, nil
	}
	return f.result, true, nil
}

func (f *fakeRestStore) UpdateViews(requestID int64) error {
	f.viewUpdates = append(f.viewUpdates, requestID)
	return nil
}

type fakeAdmissionStore struct{}

func (fakeAdmissionStore) RecentRequestExists() (bool, error) { return false, nil }

func (fakeAdmissionStore) VerifyCandidateList(id int) (bool, error) { return false, nil }

func (fakeAdmissionStore) UncachedOf(ids []string) ([]string, error) { return nil, nil }

func (fakeAdmissionStore) InsertRequest(nr types.NewRequest) error { return nil }

func (fakeAdmissionStore) FindRequestIDByHash(string) (int64, error) { return 11, nil }

type allowAllVerifier struct{}

func (allowAllVerifier) Verify(ctx context.Context, token string) (bool, error) { return true, nil }

func newTestServer(t *testing.T, store *fakeRestStore) (*Server, string) {
	t.Helper()
	outputDir := t.TempDir()
	frontendDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(frontendDir, "index.html"), []byte("<app/>"), 0o644))

	admitter := admission.NewService(fakeAdmissionStore{}, allowAllVerifier{})
	srv := NewServer(store, admitter, Config{
		FrontendPath: frontendDir,
		OutputPath:   outputDir,
	})
	return srv, outputDir
}

func TestGetInfo(t *testing.T) {
	store := &fakeRestStore{activeNodes: 3, runningJobs: 2, queued: 5}
	srv, _ := newTestServer(t, store)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/info", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, info{Nodes: 3, Jobs: 2, Queued: 5}, out)
}

func TestGetCandidateLists(t *testing.T) {
	store := &fakeRestStore{lists: []types.CandidateList{{ID: 1, Title: "Human proteome"}}}
	srv, _ := newTestServer(t, store)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lists", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out []types.CandidateList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Human proteome", out[0].Title)
}

func TestGetCandidateListsEmpty(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRestStore{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lists", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestReceiveRequest(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRestStore{})

	body := `{"reference":"1ABC_A","customList":"2DEF_B","token":"ok",` +
		`"comparisonMode":0,"candidateList":-1,"alignmentLevel":-1,` +
		`"segmentStart":-1,"segmentEnd":-1,"meta":false}`
	req := httptest.NewRequest(http.MethodPost, "/request", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out admission.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, admission.StatusAccepted, out.StatusCode)
	assert.NotEmpty(t, out.Hash)
	assert.Equal(t, int64(11), out.RequestID)
}

func TestReceiveRequestBadBody(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRestStore{})

	req := httptest.NewRequest(http.MethodPost, "/request", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out admission.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.StatusCode)
	assert.Equal(t, int64(-1), out.RequestID)
}

func TestFetchResultUnknownPair(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRestStore{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resultdata/555777/42", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out requestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, int64(-1), out.Request.ID)
	assert.Empty(t, out.Files)
}

func TestFetchResultGroupsReports(t *testing.T) {
	row := types.FinalizedRequest{}
	row.ID = 42
	row.HashValue = "555777"
	row.Meta = true
	row.GoTerm = "GO:0005515"
	row.SecureHash = "deadbeef"
	row.ListName = sql.NullString{String: "Human proteome", Valid: true}
	store := &fakeRestStore{result: row, resultFound: true}
	srv, outputDir := newTestServer(t, store)

	reportDir := filepath.Join(outputDir, "555777")
	require.NoError(t, os.MkdirAll(reportDir, 0o755))
	for _, name := range []string{
		"555777-merged-notenriched_report.html",
		"555777-merged-enriched_eval_report.html",
		"555777-merged-h-enriched_report.html",
		"555777-GO:0005515-pres_report.html",
		"unrelated.html",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(reportDir, name), []byte("<html/>"), 0o644))
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resultdata/555777/42", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out requestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, int64(42), out.Request.ID)
	require.NotNil(t, out.Request.ListName)
	assert.Equal(t, "Human proteome", *out.Request.ListName)

	assert.Equal(t, []string{"555777-merged-notenriched_report.html"}, out.Files["cluster"])
	assert.Equal(t, []string{"555777-merged-enriched_eval_report.html"}, out.Files["top"])
	assert.Equal(t, []string{"555777-merged-h-enriched_report.html"}, out.Files["topHuman"])
	assert.Equal(t, []string{"555777-GO:0005515-pres_report.html"}, out.Files["goTerm"])
	assert.NotContains(t, out.Files["cluster"], "unrelated.html")

	assert.Equal(t, []int64{42}, store.viewUpdates)
}

func TestFetchResultHidesEnrichmentWithoutMeta(t *testing.T) {
	row := types.FinalizedRequest{}
	row.ID = 42
	row.HashValue = "555777"
	row.Meta = false
	store := &fakeRestStore{result: row, resultFound: true}
	srv, outputDir := newTestServer(t, store)

	reportDir := filepath.Join(outputDir, "555777")
	require.NoError(t, os.MkdirAll(reportDir, 0o755))
	for _, name := range []string{
		"555777-merged-notenriched_report.html",
		"555777-merged-enriched_eval_report.html",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(reportDir, name), []byte("<html/>"), 0o644))
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resultdata/555777/42", nil))

	var out requestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Contains(t, out.Files, "cluster")
	assert.NotContains(t, out.Files, "top")
}

func TestStaticFrontendFallback(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRestStore{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/some/client/route", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<app/>", rec.Body.String())
}
