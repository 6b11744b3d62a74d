package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/sapelkinAV/protein-manipulation-pipeline/internal/oprlm"
)

// Tracker accumulates per-structure results, mirrors progress to the batch
// and error logs, and persists the launch summary.
type Tracker struct {
	batchLog *log.Logger
	errorLog *log.Logger
	verbose  bool

	results map[string]*oprlm.ProcessingResult

	closers []io.Closer
}

// NewTracker opens the log files under dirs and wires them together with
// stderr.
func NewTracker(dirs *DirectoryManager, verbose bool) (*Tracker, error) {
	batchFile, err := os.OpenFile(dirs.BatchLogFile(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening batch log: %w", err)
	}
	errorFile, err := os.OpenFile(dirs.ErrorLogFile(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		batchFile.Close()
		return nil, fmt.Errorf("opening error log: %w", err)
	}
	return &Tracker{
		batchLog: log.New(io.MultiWriter(os.Stderr, batchFile), "", log.LstdFlags),
		errorLog: log.New(io.MultiWriter(os.Stderr, errorFile), "", log.LstdFlags),
		verbose:  verbose,
		results:  make(map[string]*oprlm.ProcessingResult),
		closers:  []io.Closer{batchFile, errorFile},
	}, nil
}

// Close releases the log files.
func (t *Tracker) Close() {
	for _, c := range t.closers {
		c.Close()
	}
	t.closers = nil
}

func (t *Tracker) LogStart(total int) {
	t.batchLog.Printf("Starting batch processing of %d configurations", total)
}

func (t *Tracker) LogProgress(current, total int, pdbID, status string) {
	percent := float64(current) / float64(total) * 100
	t.batchLog.Printf("[%d/%d] %s: %s (%.1f%%)", current, total, pdbID, status, percent)
}

func (t *Tracker) LogSuccess(pdbID string, result *oprlm.ProcessingResult) {
	t.batchLog.Printf("%s: processed successfully", pdbID)
	if t.verbose {
		t.batchLog.Printf("  files: %v", result.ArtifactPaths())
	}
}

func (t *Tracker) LogError(pdbID, msg string) {
	t.errorLog.Printf("%s: %s", pdbID, msg)
}

// Record stores the outcome for one structure, replacing any earlier
// attempt for the same identifier.
func (t *Tracker) Record(pdbID string, result *oprlm.ProcessingResult) {
	t.results[pdbID] = result
}

// Results returns the recorded results keyed by structure identifier.
func (t *Tracker) Results() map[string]*oprlm.ProcessingResult {
	out := make(map[string]*oprlm.ProcessingResult, len(t.results))
	for k, v := range t.results {
		out[k] = v
	}
	return out
}

// LogSummary prints the end-of-batch totals.
func (t *Tracker) LogSummary() {
	successful := 0
	for _, r := range t.results {
		if r.Success {
			successful++
		}
	}
	total := len(t.results)
	t.batchLog.Printf("Batch complete: %d total, %d successful, %d failed", total, successful, total-successful)
}

type summaryFile struct {
	Timestamp  string                             `json:"timestamp"`
	Total      int                                `json:"total_configs"`
	Successful int                                `json:"successful"`
	Failed     int                                `json:"failed"`
	Results    map[string]*oprlm.ProcessingResult `json:"results"`
}

// SaveSummary persists every recorded result (success or failure) to the
// structured summary file.
func (t *Tracker) SaveSummary(path string) error {
	successful := 0
	for _, r := range t.results {
		if r.Success {
			successful++
		}
	}
	summary := summaryFile{
		Timestamp:  time.Now().Format(time.RFC3339),
		Total:      len(t.results),
		Successful: successful,
		Failed:     len(t.results) - successful,
		Results:    t.results,
	}
	data, err := json.MarshalIndent(&summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// SaveMetadata writes the per-structure metadata file next to its
// artifacts.
func (t *Tracker) SaveMetadata(pdbID, path string, req *oprlm.Request) error {
	meta := struct {
		PDBID     string                  `json:"pdb_id"`
		Timestamp string                  `json:"timestamp"`
		Request   *oprlm.Request          `json:"request"`
		Result    *oprlm.ProcessingResult `json:"result,omitempty"`
	}{
		PDBID:     pdbID,
		Timestamp: time.Now().Format(time.RFC3339),
		Request:   req,
		Result:    t.results[pdbID],
	}
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
