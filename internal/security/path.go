// Package security restricts file-path tool arguments to the configured
// work directory so MCP clients cannot read or write outside it.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator provides security validation for file paths.
type PathValidator struct {
	workDir string
}

// NewPathValidator creates a path validator rooted at the given
// directory.
func NewPathValidator(workDir string) (*PathValidator, error) {
	if workDir == "" {
		return nil, fmt.Errorf("work directory cannot be empty")
	}
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve work directory: %w", err)
	}
	return &PathValidator{workDir: abs}, nil
}

// WorkDir returns the configured work directory.
func (v *PathValidator) WorkDir() string { return v.workDir }

// NormalizePath resolves a possibly-relative path against the work
// directory and validates that it stays inside it.
func (v *PathValidator) NormalizePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	path = strings.ReplaceAll(path, "\x00", "")
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.workDir, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if err := v.ValidatePath(abs); err != nil {
		return "", err
	}
	return abs, nil
}

// ValidatePath checks that a path is within the work directory,
// resolving symlinks on both sides so a link cannot escape.
func (v *PathValidator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	cleanPath := filepath.Clean(abs)

	realDir := v.workDir
	if resolved, err := filepath.EvalSymlinks(v.workDir); err == nil {
		realDir = resolved
	}
	realPath := cleanPath
	if info, err := os.Lstat(cleanPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if resolved, err := filepath.EvalSymlinks(cleanPath); err == nil {
			realPath = resolved
		}
	}

	if !within(cleanPath, v.workDir) && !within(cleanPath, realDir) {
		return fmt.Errorf("path is outside work directory: %s", path)
	}
	if !within(realPath, v.workDir) && !within(realPath, realDir) {
		return fmt.Errorf("path is outside work directory: %s", path)
	}
	return nil
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	withSep := dir
	if !strings.HasSuffix(withSep, string(filepath.Separator)) {
		withSep += string(filepath.Separator)
	}
	return strings.HasPrefix(path, withSep)
}
