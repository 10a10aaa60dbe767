package services

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"patchpoint-api/internal/errors"
)

// The Pi's mapping pipeline bundles a rendered leaflet page under this name.
const mapFileName = "pothole_map.html"

// ExtractedMap describes one successfully extracted map bundle.
type ExtractedMap struct {
	MapUrl     string
	Timestamp  string
	ExtractDir string
}

// ArchiveService stores uploaded zip bundles from the Pi's offline mapping
// run and extracts them under the uploads directory, where the extracted
// pages are served statically.
type ArchiveService struct {
	uploadsDir string
}

func NewArchiveService(uploadsDir string) *ArchiveService {
	return &ArchiveService{uploadsDir: uploadsDir}
}

// ExtractMapArchive saves the uploaded zip, unpacks it into a timestamped
// directory, and locates the bundled map page. Fails with ErrInvalidInput
// when the upload is not a zip or carries no map page.
func (s *ArchiveService) ExtractMapArchive(fileName string, data []byte) (*ExtractedMap, error) {
	if strings.ToLower(filepath.Ext(fileName)) != ".zip" {
		return nil, fmt.Errorf("%w: only ZIP files are allowed", errors.ErrInvalidInput)
	}

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	zipsDir := filepath.Join(s.uploadsDir, "zips")
	extractDir := filepath.Join(s.uploadsDir, "pi_maps", timestamp)
	for _, dir := range []string{zipsDir, extractDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	zipPath := filepath.Join(zipsDir, timestamp+".zip")
	if err := os.WriteFile(zipPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to save archive: %w", err)
	}

	if err := extractZip(zipPath, extractDir); err != nil {
		return nil, err
	}

	mapPath, err := findMapFile(extractDir)
	if err != nil {
		return nil, err
	}

	relative, err := filepath.Rel(s.uploadsDir, mapPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve map path: %w", err)
	}
	relative = filepath.ToSlash(relative)

	return &ExtractedMap{
		MapUrl:     "/uploads/" + relative,
		Timestamp:  timestamp,
		ExtractDir: relative,
	}, nil
}

func extractZip(zipPath, destDir string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("%w: not a valid ZIP archive", errors.ErrInvalidInput)
	}
	defer reader.Close()

	for _, file := range reader.File {
		target := filepath.Join(destDir, file.Name)

		// Reject entries that would escape the extraction directory
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("%w: archive entry escapes extraction directory: %s", errors.ErrInvalidInput, file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", file.Name, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", file.Name, err)
		}

		if err := extractEntry(file, target); err != nil {
			return err
		}
	}

	return nil
}

func extractEntry(file *zip.File, target string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", file.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to extract %s: %w", file.Name, err)
	}
	return nil
}

func findMapFile(root string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == mapFileName {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to scan extracted files: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s not found in ZIP", errors.ErrInvalidInput, mapFileName)
	}
	return found, nil
}
