package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/machaonweb/machaonweb/api/proto"
	"github.com/machaonweb/machaonweb/pkg/archive"
	"github.com/machaonweb/machaonweb/pkg/log"
	"github.com/machaonweb/machaonweb/pkg/metrics"
	"github.com/machaonweb/machaonweb/pkg/types"
)

// checkJob probes the node of one randomly chosen running job. A node
// answering 1 is asked for the result archive; the job finalizes when the
// download verifies or the node reports a terminal failure. A silent node
// only gets its check timestamp refreshed.
func (m *Monitor) checkJob(ctx context.Context) (bool, error) {
	job, found, err := m.store.NextRunningJob()
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	logger := log.WithJobID(job.ID)

	archivePath := filepath.Join(m.cfg.RootDir, job.HashValue+".zip")

	client, err := m.dialer.Connect(job.NodeIP, job.NodeDomain)
	if err != nil {
		return false, err
	}
	status, err := client.GetStatus(ctx)
	if err != nil {
		logger.Debug().Err(err).Msg("node probe failed")
		status = -1
	}

	if status != 1 {
		if err := m.store.UpdateJobCheck(job.ID); err != nil {
			return false, err
		}
		return true, nil
	}

	details, err := client.DownloadResult(ctx, job.HashValue, job.RequestID, archivePath)
	if err != nil {
		logger.Debug().Err(err).Msg("result download failed")
		details = &proto.JobDetails{RequestId: -1, StatusCode: -1}
	}

	jobFinished := false
	fileHash := ""
	if details.GetStatusCode() == 0 {
		if _, err := os.Stat(archivePath); err == nil {
			fileHash, err = archive.SHA256File(archivePath)
			if err != nil {
				return false, err
			}
			if fileHash == details.GetSecureHash() {
				jobFinished = true
				if err := m.unpackResult(archivePath, job); err != nil {
					return false, err
				}
				if err := os.Remove(archivePath); err != nil {
					return false, err
				}
			}
			// A hash mismatch leaves the job running; the next cycle
			// downloads the archive again.
		}
	}

	code := int(details.GetStatusCode())
	if code == types.JobStatusWorkerFailure || code == types.JobStatusIntegrityError || jobFinished {
		if err := m.store.FinalizeJob(job.ID, fileHash, code); err != nil {
			return false, err
		}
		if err := m.store.SetNodeWorking(job.NodeID, false); err != nil {
			return false, err
		}
		metrics.JobsFinalized.WithLabelValues(strconv.Itoa(code)).Inc()
	}
	return true, nil
}

// unpackResult distributes a verified result archive: the inner result zip
// and html reports land in the request's output directory, new structure
// files and extracted features join the fleet cache.
func (m *Monitor) unpackResult(archivePath string, job types.RunningJob) error {
	outputDir := filepath.Join(m.cfg.OutputDir, job.HashValue)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := archive.ExtractByExt(archivePath, outputDir, "zip"); err != nil {
		return err
	}
	innerArchive := filepath.Join(outputDir, job.HashValue+".zip")
	if err := archive.ExtractByExt(innerArchive, outputDir, "html"); err != nil {
		return err
	}

	if err := archive.ExtractByExt(archivePath, filepath.Join(m.cfg.RootDir, pdbDirName), "pdb"); err != nil {
		return err
	}

	if job.ComparisonMode == types.ModeWholeStructure || job.ComparisonMode == types.ModeDomain {
		dataDir := filepath.Join(m.cfg.RootDir, wholeDataDirName)
		if job.ComparisonMode == types.ModeDomain {
			dataDir = filepath.Join(m.cfg.RootDir, domainDataDirName)
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		if err := archive.ExtractByExt(archivePath, dataDir, "proto"); err != nil {
			return err
		}
	}
	return nil
}
