// Package pathutil resolves filesystem paths for download sessions and the
// local database.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	inDirName       = "in"
	latestLinkName  = "latest"
	defaultDatabase = "mfynab.db"
)

// Config represents the configuration for PathResolver.
type Config struct {
	DataDir      string // root directory for downloads and the database
	DatabasePath string // optional override for the database location
}

// PathResolver resolves paths under the data directory.
type PathResolver struct {
	dataDir      string
	databasePath string
}

// New creates a new PathResolver.
func New(config Config) *PathResolver {
	return &PathResolver{
		dataDir:      config.DataDir,
		databasePath: config.DatabasePath,
	}
}

// DatabasePath returns the path of the import-history database.
func (r *PathResolver) DatabasePath() string {
	if r.databasePath != "" {
		return r.databasePath
	}
	return filepath.Join(r.dataDir, defaultDatabase)
}

// InDir returns the directory holding download sessions.
func (r *PathResolver) InDir() string {
	return filepath.Join(r.dataDir, inDirName)
}

// NewSessionDir creates a timestamped download directory and repoints the
// "latest" symlink at it. Returns the created directory.
func (r *PathResolver) NewSessionDir(now time.Time) (string, error) {
	dir := filepath.Join(r.InDir(), now.Format("20060102-150405"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}

	link := filepath.Join(r.InDir(), latestLinkName)
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to remove latest symlink: %w", err)
	}
	if err := os.Symlink(dir, link); err != nil {
		return "", fmt.Errorf("failed to create latest symlink: %w", err)
	}

	return dir, nil
}

// LatestSessionDir returns the directory the "latest" symlink points at.
func (r *PathResolver) LatestSessionDir() (string, error) {
	link := filepath.Join(r.InDir(), latestLinkName)
	dir, err := os.Readlink(link)
	if err != nil {
		return "", fmt.Errorf("no previous download session: %w", err)
	}
	return dir, nil
}

// FileExists checks if a file exists.
func (r *PathResolver) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
