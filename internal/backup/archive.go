package backup

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nico19422009/mcauto/internal/instance"
)

// ArchiveInfo describes a finished archive on disk.
type ArchiveInfo struct {
	Path      string
	Filename  string
	SizeBytes int64
	FileCount int
	CreatedAt time.Time
}

// ArchiveName builds the timestamped archive filename for an instance.
func ArchiveName(inst *instance.Instance, at time.Time) string {
	return fmt.Sprintf("%s_%s.zip", inst.Name(), at.Format("2006-01-02_15-04-05"))
}

// CreateArchive writes a zip of the instance directory to destPath. Paths
// inside the archive are relative to the instance directory. The archive
// itself, anything under its staging directory, and the console log
// (unless includeLog) are excluded.
func CreateArchive(inst *instance.Instance, destPath string, includeLog bool) (*ArchiveInfo, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	absDest, err := filepath.Abs(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve archive path: %w", err)
	}
	stagingDir := filepath.Dir(absDest)

	zw := zip.NewWriter(out)
	fileCount := 0

	walkErr := filepath.WalkDir(inst.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Skip the staging directory wholesale: it holds this archive
			// and any previous ones.
			if abs == stagingDir {
				return filepath.SkipDir
			}
			return nil
		}
		if abs == absDest {
			return nil
		}

		rel, err := filepath.Rel(inst.Dir, path)
		if err != nil {
			return err
		}
		if !includeLog && rel == instance.LogFileName {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		if _, err := io.Copy(w, f); err != nil {
			return err
		}
		fileCount++
		return nil
	})
	if walkErr != nil {
		zw.Close()
		os.Remove(destPath)
		return nil, fmt.Errorf("failed to archive %s: %w", inst.Name(), walkErr)
	}

	if err := zw.Close(); err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}

	stat, err := os.Stat(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	return &ArchiveInfo{
		Path:      destPath,
		Filename:  filepath.Base(destPath),
		SizeBytes: stat.Size(),
		FileCount: fileCount,
		CreatedAt: stat.ModTime(),
	}, nil
}

// ExtractArchive unpacks a zip archive into destDir. Entries that would
// escape destDir are rejected.
func ExtractArchive(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	for _, f := range r.File {
		target := filepath.Join(destDir, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to read archive entry %s: %w", f.Name, err)
		}
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return fmt.Errorf("failed to create %s: %w", target, err)
		}
		_, copyErr := io.Copy(out, rc)
		rc.Close()
		closeErr := out.Close()
		if copyErr != nil {
			return fmt.Errorf("failed to extract %s: %w", f.Name, copyErr)
		}
		if closeErr != nil {
			return closeErr
		}
	}

	return nil
}
