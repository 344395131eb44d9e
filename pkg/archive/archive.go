// Package archive provides the file-level primitives shared by the job
// tracker and the node synchronizer: SHA-256 file hashing, directory
// compression, selective extraction and the request fingerprint hash.
package archive

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// SHA256File computes the streaming SHA-256 of a file, rendered as lowercase
// hex.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DefaultHash computes the 64-bit non-cryptographic fingerprint of a payload,
// rendered as a decimal string. It is a deduplication key, not an integrity
// proof; callers must not rely on cross-version stability.
func DefaultHash(payload string) string {
	return strconv.FormatUint(xxhash.Sum64String(payload), 10)
}

// ZipDir compresses the directory tree rooted at src into a zip archive at
// dst. Files are deflated with permission bits 0755; directory entries are
// emitted for every non-root directory so that all unzip tools restore the
// layout.
func ZipDir(src, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	err = filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)

		if d.IsDir() {
			hdr := &zip.FileHeader{Name: name + "/"}
			hdr.SetMode(0o755 | fs.ModeDir)
			_, err := zw.CreateHeader(hdr)
			return err
		}

		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
		hdr.SetMode(0o755)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to compress %s: %w", src, err)
	}
	return zw.Close()
}

// ExtractByExt copies every archive member whose file-name extension equals
// ext (without the dot, case-sensitive) into outDir, stripping any internal
// path. Members with path traversal in their names are skipped.
func ExtractByExt(archivePath, outDir, ext string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	defer r.Close()

	for _, member := range r.File {
		if member.FileInfo().IsDir() {
			continue
		}
		name := path.Base(member.Name)
		if name == "." || name == ".." || strings.Contains(member.Name, "..") {
			continue
		}
		if strings.TrimPrefix(path.Ext(name), ".") != ext {
			continue
		}
		if err := extractMember(member, filepath.Join(outDir, name)); err != nil {
			return err
		}
	}
	return nil
}

func extractMember(member *zip.File, dst string) error {
	rc, err := member.Open()
	if err != nil {
		return fmt.Errorf("failed to read member %s: %w", member.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("failed to extract %s: %w", member.Name, err)
	}
	return out.Close()
}
