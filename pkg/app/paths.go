package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// ValidateOutputPath checks that path, when set, can be created: its
// directory must exist and the path must not be a directory. An empty path is
// valid.
func ValidateOutputPath(path string) error {
	if path == "" {
		return nil
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// ValidateInputPath checks that path names a readable regular file and
// returns its size.
func ValidateInputPath(path string) (int64, error) {
	if path == "" {
		return 0, fmt.Errorf("input file is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", path)
	}
	return info.Size(), nil
}
