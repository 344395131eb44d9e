// Package scheduler runs the three coordinator loops: fulfilling queued
// requests, tracking running jobs and synchronizing node caches. Each loop
// wakes on its own ticker and performs at most one unit of work per cycle.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/machaonweb/machaonweb/api/proto"
	"github.com/machaonweb/machaonweb/pkg/log"
	"github.com/machaonweb/machaonweb/pkg/metrics"
	"github.com/machaonweb/machaonweb/pkg/transport"
	"github.com/machaonweb/machaonweb/pkg/types"
)

// Directory names under the monitor root holding the fleet-wide cache.
const (
	pdbDirName        = "PDBs_new"
	wholeDataDirName  = "DATA_PDBs_new_whole"
	domainDataDirName = "DATA_PDBs_new_domain"
)

// probeRetryDelay is the pause after a failed node probe during assignment.
const probeRetryDelay = 15 * time.Second

// Store is the slice of the persistence layer the loops need.
type Store interface {
	CountIdleNodes() (int64, error)
	NextPendingRequest() (types.PendingRequest, bool, error)
	FindFulfilled(hash string, meta bool, goTerm string) (string, error)
	InsertJob(nj types.NewJob) error
	ListAvailableNodes() ([]types.Node, error)
	ClaimNode(nodeID int) (bool, error)
	SetNodeWorking(nodeID int, working bool) error
	FinalizeJob(jobID int64, secureHash string, status int) error
	NextRunningJob() (types.RunningJob, bool, error)
	UpdateJobCheck(jobID int64) error
	NextStaleNode() (types.Node, bool, error)
	UncachedSince(excludeNodeID int, since time.Time) ([]string, error)
	UpdateNodeSyncDate(nodeID int) error
}

// NodeClient is the per-node RPC surface the loops consume.
type NodeClient interface {
	GetStatus(ctx context.Context) (int32, error)
	StartJob(ctx context.Context, req *proto.JobRequest) (*proto.JobStatus, error)
	DownloadResult(ctx context.Context, hash string, requestID int64, destPath string) (*proto.JobDetails, error)
	Synchronize(ctx context.Context, archivePath, secureHash string) (int32, error)
}

// Dialer builds a client for one node endpoint.
type Dialer interface {
	Connect(addr, domain string) (NodeClient, error)
}

// TransportDialer adapts the mTLS transport factory to the Dialer interface.
type TransportDialer struct {
	Factory *transport.Factory
}

func (d TransportDialer) Connect(addr, domain string) (NodeClient, error) {
	return d.Factory.Connect(addr, domain)
}

// Config carries the loop intervals and working directories.
type Config struct {
	RootDir   string
	OutputDir string

	RequestInterval time.Duration
	JobInterval     time.Duration
	SyncInterval    time.Duration
}

// Monitor owns the three coordinator loops.
type Monitor struct {
	store  Store
	dialer Dialer
	cfg    Config

	stopCh chan struct{}
	wg     sync.WaitGroup

	// sleep and pickIndex are replaceable in tests.
	sleep     func(d time.Duration)
	pickIndex func(n int) int
}

// NewMonitor builds the monitor and creates the cache and output directory
// trees when absent.
func NewMonitor(store Store, dialer Dialer, cfg Config) (*Monitor, error) {
	for _, dir := range []string{
		cfg.RootDir,
		filepath.Join(cfg.RootDir, pdbDirName),
		filepath.Join(cfg.RootDir, wholeDataDirName),
		filepath.Join(cfg.RootDir, domainDataDirName),
		cfg.OutputDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &Monitor{
		store:     store,
		dialer:    dialer,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		sleep:     time.Sleep,
		pickIndex: rand.Intn,
	}, nil
}

// Start launches the three loops.
func (m *Monitor) Start() {
	m.wg.Add(3)
	go m.run("requests", m.cfg.RequestInterval, m.fulfillRequest)
	go m.run("jobs", m.cfg.JobInterval, m.checkJob)
	go m.run("sync", m.cfg.SyncInterval, m.syncNode)
}

// Stop halts the loops and waits for in-flight cycles to finish.
func (m *Monitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

func (m *Monitor) run(name string, interval time.Duration, cycle func(ctx context.Context) (bool, error)) {
	defer m.wg.Done()
	logger := log.WithComponent("scheduler").With().Str("loop", name).Logger()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := cycle(context.Background()); err != nil {
				metrics.LoopCyclesTotal.WithLabelValues(name, "error").Inc()
				logger.Debug().Err(err).Msg("cycle failed")
			} else {
				metrics.LoopCyclesTotal.WithLabelValues(name, "ok").Inc()
			}
		case <-m.stopCh:
			return
		}
	}
}
