// Package safeio guards hook file reads and writes. Manifest and hook paths
// come from user-editable configuration, so nothing here trusts its path
// arguments.
package safeio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CleanUserPath cleans a user-supplied path and rejects any that climb out
// of the tree with "..". The result uses forward slashes on every platform.
func CleanUserPath(p string) (string, error) {
	clean := filepath.Clean(p)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("path %q escapes the working tree", p)
	}
	return filepath.ToSlash(clean), nil
}

// ReadFileContained reads filePath only when it resolves to a location
// inside baseDir.
func ReadFileContained(baseDir, filePath string) ([]byte, error) {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory %s: %w", baseDir, err)
	}
	target, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve file path %s: %w", filePath, err)
	}

	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%s is outside %s", filePath, baseDir)
	}

	return os.ReadFile(target) // #nosec G304 -- containment in baseDir verified above
}

// WriteFileExecutable writes data to path and marks it executable. Git only
// runs hook files that carry the execute bit, so installs must not depend on
// the process umask or on whatever mode a previous install left behind.
func WriteFileExecutable(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o755); err != nil { // #nosec G306 -- hooks must be executable
		return err
	}
	return os.Chmod(path, 0o755)
}
