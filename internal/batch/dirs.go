// Package batch runs many submissions sequentially, records every outcome,
// and organizes results under a per-launch directory tree.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DirectoryManager lays out one launch:
//
//	<output>/<launchID>/
//	    <pdb_id>/            per-structure artifacts + metadata.json
//	    logs/batch.log
//	    logs/errors.log
//	    summary.json
type DirectoryManager struct {
	OutputDir string
	LaunchID  string
	LaunchDir string
	LogsDir   string
}

// NewDirectoryManager creates the launch and logs directories.
func NewDirectoryManager(outputDir, launchID string) (*DirectoryManager, error) {
	launchDir := filepath.Join(outputDir, launchID)
	logsDir := filepath.Join(launchDir, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating launch directories: %w", err)
	}
	return &DirectoryManager{
		OutputDir: outputDir,
		LaunchID:  launchID,
		LaunchDir: launchDir,
		LogsDir:   logsDir,
	}, nil
}

// PDBOutputDir returns (and creates) the artifact directory for one
// structure.
func (d *DirectoryManager) PDBOutputDir(pdbID string) (string, error) {
	dir := filepath.Join(d.LaunchDir, pdbID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir for %s: %w", pdbID, err)
	}
	return dir, nil
}

func (d *DirectoryManager) SummaryFile() string {
	return filepath.Join(d.LaunchDir, "summary.json")
}

func (d *DirectoryManager) BatchLogFile() string {
	return filepath.Join(d.LogsDir, "batch.log")
}

func (d *DirectoryManager) ErrorLogFile() string {
	return filepath.Join(d.LogsDir, "errors.log")
}

// MetadataFile returns the metadata path for one structure, creating its
// directory.
func (d *DirectoryManager) MetadataFile(pdbID string) (string, error) {
	dir, err := d.PDBOutputDir(pdbID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "metadata.json"), nil
}

// GenerateLaunchID builds the username_YYYYMMDD_HHMMSS launch identifier.
func GenerateLaunchID(username string) string {
	return fmt.Sprintf("%s_%s", username, time.Now().Format("20060102_150405"))
}
