// Package fileutil provides file and path utility functions.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for file utility operations.
var (
	ErrNameEmpty         = errors.New("file name cannot be empty")
	ErrNamePathTraversal = errors.New("file name contains path separator, dot segment or null byte")
	ErrFileExists        = errors.New("file already exists")
)

// ValidateName checks that name is a plain base name that stays inside
// whatever directory it is joined to.
func ValidateName(name string) error {
	if name == "" {
		return ErrNameEmpty
	}
	if name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return ErrNamePathTraversal
	}
	return nil
}

// WriteExclusive writes data to dir/name without ever exposing a partial file
// or replacing an existing one. The bytes go to a temp file in dir first, which
// is then hard-linked into place. Returns ErrFileExists if name is taken.
func WriteExclusive(dir, name string, data []byte) (path string, err error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, writeErr := tmpFile.Write(data); writeErr != nil {
		_ = tmpFile.Close()
		return "", fmt.Errorf("writing temp file: %w", writeErr)
	}
	if closeErr := tmpFile.Close(); closeErr != nil {
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}
	if chmodErr := os.Chmod(tmpPath, 0o644); chmodErr != nil { // #nosec G302 -- served publicly
		return "", fmt.Errorf("setting permissions: %w", chmodErr)
	}

	path = filepath.Join(dir, name)
	if linkErr := os.Link(tmpPath, path); linkErr != nil {
		if errors.Is(linkErr, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrFileExists, name)
		}
		return "", fmt.Errorf("linking %s: %w", name, linkErr)
	}

	return path, nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsURL returns true if the string looks like a URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
