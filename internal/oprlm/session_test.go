package oprlm

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// The ordering checks run before any browser call, so out-of-order use is
// testable without a browser.

func TestSessionStateStrings(t *testing.T) {
	want := map[SessionState]string{
		StateUninitialized:          "UNINITIALIZED",
		StateReady:                  "READY",
		StateModeSelected:           "MODE_SELECTED",
		StateStructureLoaded:        "STRUCTURE_LOADED",
		StateConfiguredAndSubmitted: "CONFIGURED_AND_SUBMITTED",
		StateJobRunning:             "JOB_RUNNING",
		StateJobComplete:            "JOB_COMPLETE",
		StateJobFailed:              "JOB_FAILED",
		StateJobTimedOut:            "JOB_TIMED_OUT",
	}
	for state, name := range want {
		if state.String() != name {
			t.Errorf("State %d: got %q, want %q", state, state.String(), name)
		}
	}
}

func TestSessionTerminalStates(t *testing.T) {
	terminal := []SessionState{StateJobComplete, StateJobFailed, StateJobTimedOut}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("Expected %s to be terminal", s)
		}
	}
	for _, s := range []SessionState{StateUninitialized, StateReady, StateJobRunning} {
		if s.Terminal() {
			t.Errorf("Expected %s not to be terminal", s)
		}
	}
}

func TestSessionRejectsOutOfOrderCalls(t *testing.T) {
	s := &Session{}

	if err := s.SelectInputMode(InputModeSearchRCSB); !errors.Is(err, ErrFormFill) {
		t.Errorf("SelectInputMode on UNINITIALIZED: got %v, want ErrFormFill", err)
	}
	if err := s.SubmitSearch("1ABC"); !errors.Is(err, ErrFormFill) {
		t.Errorf("SubmitSearch on UNINITIALIZED: got %v, want ErrFormFill", err)
	}
	if err := s.SubmitUpload("x.pdb"); !errors.Is(err, ErrFormFill) {
		t.Errorf("SubmitUpload on UNINITIALIZED: got %v, want ErrFormFill", err)
	}
	if _, err := s.ConfigureAndSubmit(validSearchRequest()); !errors.Is(err, ErrFormFill) {
		t.Errorf("ConfigureAndSubmit on UNINITIALIZED: got %v, want ErrFormFill", err)
	}
	if err := s.AwaitCompletion(JobHandle{ID: "j"}, 0); !errors.Is(err, ErrFormFill) {
		t.Errorf("AwaitCompletion on UNINITIALIZED: got %v, want ErrFormFill", err)
	}
	if _, err := s.ArtifactLinks(); !errors.Is(err, ErrFormFill) {
		t.Errorf("ArtifactLinks on UNINITIALIZED: got %v, want ErrFormFill", err)
	}
}

func TestSessionSearchRequiresSearchMode(t *testing.T) {
	s := &Session{state: StateModeSelected, mode: InputModeUpload}
	if err := s.SubmitSearch("1ABC"); !errors.Is(err, ErrFormFill) {
		t.Errorf("Search in upload mode: got %v, want ErrFormFill", err)
	}
}

func TestSessionUploadRequiresUploadMode(t *testing.T) {
	s := &Session{state: StateModeSelected, mode: InputModeSearchRCSB}
	if err := s.SubmitUpload("x.pdb"); !errors.Is(err, ErrFormFill) {
		t.Errorf("Upload in search mode: got %v, want ErrFormFill", err)
	}
}

func TestSessionSearchRejectsEmptyIdentifier(t *testing.T) {
	s := &Session{state: StateModeSelected, mode: InputModeSearchOPRLM}
	if err := s.SubmitSearch("  "); !errors.Is(err, ErrValidation) {
		t.Errorf("Empty identifier: got %v, want ErrValidation", err)
	}
}

func TestSessionUploadValidatesFileBeforeBrowserUse(t *testing.T) {
	s := &Session{state: StateModeSelected, mode: InputModeUpload}
	missing := filepath.Join(t.TempDir(), "missing.pdb")
	if err := s.SubmitUpload(missing); !errors.Is(err, ErrFileValidation) {
		t.Errorf("Nonexistent file: got %v, want ErrFileValidation", err)
	}
}

func TestSessionConfigureRevalidatesMembraneConfig(t *testing.T) {
	s := &Session{state: StateStructureLoaded, mode: InputModeSearchRCSB}
	req := validSearchRequest()
	req.Membrane.CholPercent = 150 // bypassed the builder
	if _, err := s.ConfigureAndSubmit(req); !errors.Is(err, ErrValidation) {
		t.Errorf("Out-of-range membrane config: got %v, want ErrValidation", err)
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	s := &Session{}
	if err := s.Close(); err != nil {
		t.Fatalf("First close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Second close: %v", err)
	}
	if !s.State().Terminal() {
		t.Errorf("Closed session should be terminal, got %s", s.State())
	}
}

func TestProcessFailsValidationBeforeOpeningBrowser(t *testing.T) {
	req := validSearchRequest()
	req.InputMode = InputModeUpload
	req.FilePath = filepath.Join(t.TempDir(), "missing.pdb")

	// An invalid request must fail synchronously; a browser launch would
	// make this test orders of magnitude slower and is not attempted.
	result, err := Process(context.Background(), req, ProcessOptions{Headless: true})
	if !errors.Is(err, ErrFileValidation) {
		t.Fatalf("Expected ErrFileValidation, got %v", err)
	}
	if result == nil || result.Success {
		t.Errorf("Expected unsuccessful result, got %+v", result)
	}
	if result.Error == "" {
		t.Error("Expected result to carry the error message")
	}
}

func TestProcessFailsEmptyIdentifierBeforeOpeningBrowser(t *testing.T) {
	req := validSearchRequest()
	req.PDBID = ""
	result, err := Process(context.Background(), req, ProcessOptions{Headless: true})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected ErrValidation, got %v", err)
	}
	if result.Success {
		t.Error("Expected unsuccessful result")
	}
}

func TestLoaderForPicksVariantByMode(t *testing.T) {
	req := validSearchRequest()
	if _, ok := loaderFor(req).(searchLoader); !ok {
		t.Errorf("Expected searchLoader for mode %q", req.InputMode)
	}
	req.InputMode = InputModeUpload
	req.FilePath = "x.pdb"
	if _, ok := loaderFor(req).(uploadLoader); !ok {
		t.Errorf("Expected uploadLoader for mode %q", req.InputMode)
	}
}
