package oprlm

import (
	"context"
	"errors"
	"log"
	"time"
)

// structureLoader is the one varying step of the workflow: how the source
// structure gets onto the server page. Search and upload are the two
// variants.
type structureLoader interface {
	load(s *Session) error
}

type searchLoader struct {
	identifier string
}

func (l searchLoader) load(s *Session) error {
	return s.SubmitSearch(l.identifier)
}

type uploadLoader struct {
	path string
}

func (l uploadLoader) load(s *Session) error {
	return s.SubmitUpload(l.path)
}

func loaderFor(req *Request) structureLoader {
	if req.InputMode == InputModeUpload {
		return uploadLoader{path: req.FilePath}
	}
	return searchLoader{identifier: req.PDBID}
}

// ProcessOptions tunes a single workflow run.
type ProcessOptions struct {
	Headless   bool
	JobTimeout time.Duration // zero means DefaultJobTimeout
}

// Process drives one validated request through the full workflow: open a
// session, load the structure, configure and submit, wait for completion,
// retrieve artifacts. The browser is released on every exit path. The
// returned ProcessingResult is always non-nil; Success stays true for
// partial artifact sets.
func Process(ctx context.Context, req *Request, opts ProcessOptions) (*ProcessingResult, error) {
	result := &ProcessingResult{JobID: req.PDBID}

	// Validation runs before any browser resource is acquired.
	if err := req.Validate(); err != nil {
		result.Error = err.Error()
		return result, err
	}

	session, err := OpenSession(ctx, opts.Headless)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	defer session.Close()

	if err := session.SelectInputMode(req.InputMode); err != nil {
		result.Error = err.Error()
		return result, err
	}
	if err := loaderFor(req).load(session); err != nil {
		result.Error = err.Error()
		return result, err
	}

	handle, err := session.ConfigureAndSubmit(req)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	result.JobID = handle.ID
	log.Printf("Job %s submitted, waiting for completion...", handle.ID)

	if err := session.AwaitCompletion(handle, opts.JobTimeout); err != nil {
		result.Error = err.Error()
		return result, err
	}

	links, err := session.ArtifactLinks()
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	files, err := NewRetriever().Retrieve(ctx, links, req.OutputDir)
	result.StructurePath = files.StructurePath
	result.MDInputPath = files.MDInputPath
	result.CharmmGUIPath = files.CharmmGUIPath
	if err != nil && !errors.Is(err, ErrPartialResult) {
		result.Error = err.Error()
		return result, err
	}
	if errors.Is(err, ErrPartialResult) {
		log.Printf("Job %s: %v", handle.ID, err)
	}

	result.Success = true
	return result, nil
}
