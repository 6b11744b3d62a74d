package batch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sapelkinAV/protein-manipulation-pipeline/internal/oprlm"
)

func newTestProcessor(t *testing.T, continueOnError bool) *Processor {
	t.Helper()
	dirs, err := NewDirectoryManager(t.TempDir(), GenerateLaunchID("tester"))
	if err != nil {
		t.Fatal(err)
	}
	tracker, err := NewTracker(dirs, false)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(tracker.Close)
	return NewProcessor(dirs, tracker, true, continueOnError)
}

func searchRequest(t *testing.T, pdbID string) *oprlm.Request {
	t.Helper()
	req, err := oprlm.NewRequestBuilder().
		PDBID(pdbID).
		InputMode(oprlm.InputModeSearchRCSB).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return req
}

// scriptedProcess succeeds except for identifiers listed in failures.
func scriptedProcess(failures map[string]bool) ProcessFunc {
	return func(ctx context.Context, req *oprlm.Request, opts oprlm.ProcessOptions) (*oprlm.ProcessingResult, error) {
		if failures[req.PDBID] {
			return &oprlm.ProcessingResult{JobID: req.PDBID, Error: "scripted failure"},
				errors.New("scripted failure")
		}
		return &oprlm.ProcessingResult{
			Success:       true,
			JobID:         req.PDBID,
			StructurePath: filepath.Join(req.OutputDir, "step5_assembly.pdb"),
			MDInputPath:   filepath.Join(req.OutputDir, "md_input.tgz"),
			CharmmGUIPath: filepath.Join(req.OutputDir, "charmm-gui.tgz"),
		}, nil
	}
}

func TestProcessorRunsAllAndWritesSummary(t *testing.T) {
	p := newTestProcessor(t, false)
	p.Process = scriptedProcess(nil)

	configs := map[string]*oprlm.Request{
		"a.yml": searchRequest(t, "1ABC"),
		"b.yml": searchRequest(t, "3C02"),
	}
	results, err := p.Run(context.Background(), configs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	for id, r := range results {
		if !r.Success {
			t.Errorf("%s: expected success, got %+v", id, r)
		}
		if len(r.ArtifactPaths()) != 3 {
			t.Errorf("%s: expected 3 artifact paths, got %v", id, r.ArtifactPaths())
		}
	}

	data, err := os.ReadFile(p.Dirs.SummaryFile())
	if err != nil {
		t.Fatalf("Reading summary: %v", err)
	}
	var summary struct {
		Total      int `json:"total_configs"`
		Successful int `json:"successful"`
		Failed     int `json:"failed"`
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("Parsing summary: %v", err)
	}
	if summary.Total != 2 || summary.Successful != 2 || summary.Failed != 0 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}

func TestProcessorRunsOneSubmissionAtATime(t *testing.T) {
	p := newTestProcessor(t, false)
	active := 0
	p.Process = func(ctx context.Context, req *oprlm.Request, opts oprlm.ProcessOptions) (*oprlm.ProcessingResult, error) {
		active++
		if active > 1 {
			t.Errorf("Expected sequential processing, %d submissions in flight", active)
		}
		defer func() { active-- }()
		return &oprlm.ProcessingResult{Success: true, JobID: req.PDBID}, nil
	}

	configs := map[string]*oprlm.Request{
		"a.yml": searchRequest(t, "1ABC"),
		"b.yml": searchRequest(t, "3C02"),
		"c.yml": searchRequest(t, "2W6V"),
	}
	results, err := p.Run(context.Background(), configs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("Expected 3 results, got %d", len(results))
	}
}

func TestProcessorHaltsOnFirstFailureByDefault(t *testing.T) {
	p := newTestProcessor(t, false)
	p.Process = scriptedProcess(map[string]bool{"1ABC": true})

	// Sorted key order guarantees a.yml runs first.
	configs := map[string]*oprlm.Request{
		"a.yml": searchRequest(t, "1ABC"),
		"b.yml": searchRequest(t, "3C02"),
	}
	results, err := p.Run(context.Background(), configs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected processing to halt after first failure, got %d results", len(results))
	}
	if results["1ABC"] == nil || results["1ABC"].Success {
		t.Errorf("Expected recorded failure for 1ABC, got %+v", results["1ABC"])
	}
}

func TestProcessorContinuesOnErrorWhenAsked(t *testing.T) {
	p := newTestProcessor(t, true)
	p.Process = scriptedProcess(map[string]bool{"1ABC": true})

	configs := map[string]*oprlm.Request{
		"a.yml": searchRequest(t, "1ABC"),
		"b.yml": searchRequest(t, "3C02"),
	}
	results, err := p.Run(context.Background(), configs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected both items processed, got %d", len(results))
	}
	if results["1ABC"].Success {
		t.Error("Expected 1ABC to fail")
	}
	if !results["3C02"].Success {
		t.Error("Expected 3C02 to succeed after the earlier failure")
	}
}

func TestProcessorFailureDoesNotCorruptEarlierResults(t *testing.T) {
	p := newTestProcessor(t, true)
	p.Process = scriptedProcess(map[string]bool{"3C02": true})

	configs := map[string]*oprlm.Request{
		"a.yml": searchRequest(t, "1ABC"),
		"b.yml": searchRequest(t, "3C02"),
	}
	results, err := p.Run(context.Background(), configs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !results["1ABC"].Success {
		t.Error("Earlier success must stay recorded after a later failure")
	}
}

func TestProcessorRedirectsOutputIntoLaunchDir(t *testing.T) {
	p := newTestProcessor(t, false)
	var gotOutputDir string
	p.Process = func(ctx context.Context, req *oprlm.Request, opts oprlm.ProcessOptions) (*oprlm.ProcessingResult, error) {
		gotOutputDir = req.OutputDir
		return &oprlm.ProcessingResult{Success: true, JobID: req.PDBID}, nil
	}

	req := searchRequest(t, "1ABC")
	req.OutputDir = "/somewhere/else"
	if _, err := p.Run(context.Background(), map[string]*oprlm.Request{"a.yml": req}); err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(p.Dirs.LaunchDir, "1ABC")
	if gotOutputDir != want {
		t.Errorf("Expected output dir %s, got %s", want, gotOutputDir)
	}
	// The caller's request must not be mutated.
	if req.OutputDir != "/somewhere/else" {
		t.Errorf("Caller request mutated: %s", req.OutputDir)
	}
}

func TestProcessorWritesMetadataPerStructure(t *testing.T) {
	p := newTestProcessor(t, false)
	p.Process = scriptedProcess(nil)

	if _, err := p.Run(context.Background(), map[string]*oprlm.Request{"a.yml": searchRequest(t, "1ABC")}); err != nil {
		t.Fatal(err)
	}

	metaPath := filepath.Join(p.Dirs.LaunchDir, "1ABC", "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatalf("Reading metadata: %v", err)
	}
	var meta struct {
		PDBID  string                  `json:"pdb_id"`
		Result *oprlm.ProcessingResult `json:"result"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("Parsing metadata: %v", err)
	}
	if meta.PDBID != "1ABC" || meta.Result == nil || !meta.Result.Success {
		t.Errorf("Unexpected metadata: %+v", meta)
	}
}

func TestDryRunFlagsOnlyInvalidConfigs(t *testing.T) {
	bad := searchRequest(t, "1ABC")
	bad.Temperature = 999

	errs := DryRun(map[string]*oprlm.Request{
		"good.yml": searchRequest(t, "3C02"),
		"bad.yml":  bad,
	})
	if len(errs) != 1 {
		t.Fatalf("Expected 1 invalid config, got %d", len(errs))
	}
	if !errors.Is(errs["bad.yml"], oprlm.ErrValidation) {
		t.Errorf("Expected ErrValidation for bad.yml, got %v", errs["bad.yml"])
	}
}

func TestGenerateLaunchIDFormat(t *testing.T) {
	id := GenerateLaunchID("alice")
	if len(id) != len("alice_20060102_150405") {
		t.Errorf("Unexpected launch id %q", id)
	}
	if id[:6] != "alice_" {
		t.Errorf("Expected username prefix, got %q", id)
	}
}
