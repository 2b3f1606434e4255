package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// IncomingFile is one candidate file found in the inbox.
type IncomingFile struct {
	Name string
	Path string
	Size int64
}

// Scanner finds importable files in a directory.
type Scanner struct {
	extensions map[string]bool
	maxBytes   int64
	log        *logrus.Logger
}

// NewScanner builds a scanner for the given extensions (".html", ".xlsx", ...)
// and size limit in megabytes.
func NewScanner(extensions []string, maxFileSizeMB int, log *logrus.Logger) *Scanner {
	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = true
	}
	return &Scanner{
		extensions: extSet,
		maxBytes:   int64(maxFileSizeMB) * 1024 * 1024,
		log:        log,
	}
}

// Scan lists supported, non-empty files directly under dir in lexicographic
// order so repeated runs process files deterministically. Subdirectories are
// not descended into.
func (s *Scanner) Scan(dir string) ([]IncomingFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.WithField("dir", dir).Warn("inbox directory does not exist")
			return nil, nil
		}
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	var files []IncomingFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !s.extensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.log.WithError(err).WithField("file", entry.Name()).Warn("skipping unreadable file")
			continue
		}
		if info.Size() == 0 {
			continue
		}
		if s.maxBytes > 0 && info.Size() > s.maxBytes {
			s.log.WithFields(logrus.Fields{
				"file": entry.Name(),
				"size": info.Size(),
			}).Warn("skipping file over size limit")
			continue
		}
		files = append(files, IncomingFile{
			Name: entry.Name(),
			Path: filepath.Join(dir, entry.Name()),
			Size: info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// MoveFile relocates a file into destDir, resolving name conflicts with a
// numeric suffix ("report_1.html"). Returns the final destination path.
func MoveFile(sourcePath, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", destDir, err)
	}

	base := filepath.Base(sourcePath)
	dest := filepath.Join(destDir, base)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			break
		}
		dest = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
	}

	if err := os.Rename(sourcePath, dest); err != nil {
		return "", fmt.Errorf("moving %s to %s: %w", sourcePath, dest, err)
	}
	return dest, nil
}
