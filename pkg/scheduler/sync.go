package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/machaonweb/machaonweb/pkg/archive"
	"github.com/machaonweb/machaonweb/pkg/log"
	"github.com/machaonweb/machaonweb/pkg/metrics"
)

// syncNode pushes the cache delta to the stalest idle node. The structure
// files and features produced on other nodes since the node's last sync are
// staged into a temporary folder, zipped and uploaded; the sync date only
// advances when the node acknowledges the upload.
func (m *Monitor) syncNode(ctx context.Context) (bool, error) {
	node, found, err := m.store.NextStaleNode()
	if err != nil {
		return false, err
	}
	if !found || node.ID <= 0 {
		return false, nil
	}
	logger := log.WithNodeID(node.ID)

	uncachedLists, err := m.store.UncachedSince(node.ID, node.SyncDate)
	if err != nil {
		return false, err
	}
	if len(uncachedLists) == 0 {
		return false, nil
	}

	tempDir := filepath.Join(m.cfg.RootDir, uuid.New().String())
	archivePath := tempDir + ".zip"
	pdbDir := filepath.Join(tempDir, pdbDirName)
	wholeDir := filepath.Join(tempDir, wholeDataDirName)
	for _, dir := range []string{tempDir, pdbDir, wholeDir, filepath.Join(tempDir, domainDataDirName)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("failed to create staging directory: %w", err)
		}
	}

	rootPDBDir := filepath.Join(m.cfg.RootDir, pdbDirName)
	rootWholeDir := filepath.Join(m.cfg.RootDir, wholeDataDirName)
	rootDomainDir := filepath.Join(m.cfg.RootDir, domainDataDirName)

	for _, list := range uncachedLists {
		for _, structureID := range strings.Split(list, ",") {
			src := filepath.Join(rootPDBDir, structureID+".pdb")
			if _, err := os.Stat(src); err == nil {
				if err := copyFile(src, filepath.Join(pdbDir, structureID+".pdb")); err != nil {
					return false, err
				}
			}
			// Feature files of both levels are staged into the
			// whole-structure folder.
			if err := stageMatches(rootWholeDir, structureID, wholeDir); err != nil {
				return false, err
			}
			if err := stageMatches(rootDomainDir, structureID, wholeDir); err != nil {
				return false, err
			}
		}
	}

	if _, err := os.Stat(archivePath); err == nil {
		if err := os.Remove(archivePath); err != nil {
			return false, err
		}
	}
	if err := archive.ZipDir(tempDir, archivePath); err != nil {
		logger.Debug().Err(err).Msg("failed to build sync archive")
		return false, nil
	}

	secureHash, err := archive.SHA256File(archivePath)
	if err != nil {
		return false, err
	}

	client, err := m.dialer.Connect(node.IP, node.Domain)
	if err != nil {
		return false, err
	}
	status, err := client.Synchronize(ctx, archivePath, secureHash)
	if err != nil {
		logger.Debug().Err(err).Msg("sync upload failed")
		status = -1
	}

	result := false
	if status == 0 {
		if err := m.store.UpdateNodeSyncDate(node.ID); err != nil {
			return false, err
		}
		metrics.NodeSyncsTotal.Inc()
		result = true
	}

	if err := os.RemoveAll(tempDir); err != nil {
		return result, err
	}
	if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
		return result, err
	}
	return result, nil
}

// stageMatches copies every file in dir whose name starts with structureID
// into dst.
func stageMatches(dir, structureID, dst string) error {
	if _, err := os.Stat(dir); err != nil {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, structureID+"*"))
	if err != nil {
		return err
	}
	for _, match := range matches {
		if err := copyFile(match, filepath.Join(dst, filepath.Base(match))); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
