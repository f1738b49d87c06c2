package snapdiff

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// extractZip unpacks an archive under destDir. Entries that would escape
// destDir are rejected.
func extractZip(zipPath, destDir string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open zip %s: %w", zipPath, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		target := filepath.Join(destDir, filepath.FromSlash(file.Name))
		rel, err := filepath.Rel(destDir, target)
		if err != nil || strings.HasPrefix(rel, "..") {
			return fmt.Errorf("zip entry escapes extraction root: %s", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", target, err)
		}
		if err := writeZipEntry(file, target); err != nil {
			return err
		}
	}

	return nil
}

func writeZipEntry(file *zip.File, target string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", file.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("extract %s: %w", file.Name, err)
	}

	return nil
}

// findRootDir returns the effective project root after extraction. Many
// archives wrap all content in a single top-level directory; when exactly
// one non-junk entry exists and it is a directory, that directory is the
// root. Dotfiles and __MACOSX do not count against the single-entry rule.
func findRootDir(extractDir string) string {
	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return extractDir
	}

	var real []os.DirEntry
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || name == "__MACOSX" {
			continue
		}
		real = append(real, entry)
	}

	if len(real) == 1 && real[0].IsDir() {
		return filepath.Join(extractDir, real[0].Name())
	}

	return extractDir
}

// walkFiles returns relativePath -> absolutePath for every non-binary file
// under root. Relative paths use forward slashes.
func walkFiles(root string, binaryExts map[string]bool) (map[string]string, error) {
	files := make(map[string]string)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if binaryExts[strings.ToLower(filepath.Ext(rel))] {
			return nil
		}
		files[rel] = p

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return files, nil
}

// readTextFile reads a file as text. Valid UTF-8 is kept as-is; anything
// else is decoded as Latin-1. The error is non-nil only when the read
// itself fails.
func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}

	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}

	return string(runes), nil
}

// countLines counts logical lines the way text editors do: a trailing
// newline does not open an extra line.
func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}

	return n
}

// ReadSnapshot extracts a single snapshot and returns its sorted file
// listing plus the decoded content of every non-binary file.
func ReadSnapshot(zipPath string, binaryExtensions []string) ([]string, map[string]string, error) {
	tmpDir, err := os.MkdirTemp("", "retrospect-snap-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := extractZip(zipPath, tmpDir); err != nil {
		return nil, nil, err
	}

	root := findRootDir(tmpDir)
	files, err := walkFiles(root, normalizeExtensions(binaryExtensions))
	if err != nil {
		return nil, nil, err
	}

	listing := make([]string, 0, len(files))
	contents := make(map[string]string, len(files))
	for rel, abs := range files {
		listing = append(listing, rel)
		text, err := readTextFile(abs)
		if err != nil {
			continue
		}
		contents[rel] = text
	}
	sort.Strings(listing)

	return listing, contents, nil
}
