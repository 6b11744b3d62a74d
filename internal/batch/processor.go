package batch

import (
	"context"
	"fmt"
	"sort"

	"github.com/sapelkinAV/protein-manipulation-pipeline/internal/oprlm"
)

// ProcessFunc runs one submission end to end. The default is oprlm.Process;
// tests substitute a stub.
type ProcessFunc func(ctx context.Context, req *oprlm.Request, opts oprlm.ProcessOptions) (*oprlm.ProcessingResult, error)

// Processor runs submissions one at a time. Browser automation against the
// server is not proven safe under concurrent sessions.
type Processor struct {
	Dirs            *DirectoryManager
	Tracker         *Tracker
	Headless        bool
	ContinueOnError bool

	Process ProcessFunc
}

// NewProcessor wires a processor around the given directory manager and
// tracker.
func NewProcessor(dirs *DirectoryManager, tracker *Tracker, headless, continueOnError bool) *Processor {
	return &Processor{
		Dirs:            dirs,
		Tracker:         tracker,
		Headless:        headless,
		ContinueOnError: continueOnError,
		Process:         oprlm.Process,
	}
}

// Run processes every configuration, keyed by source name, in sorted key
// order. Every outcome is recorded before the next item starts; a failure
// either halts the batch or moves on depending on ContinueOnError. The
// summary is persisted in both cases.
func (p *Processor) Run(ctx context.Context, configs map[string]*oprlm.Request) (map[string]*oprlm.ProcessingResult, error) {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	p.Tracker.LogStart(len(names))

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			break
		}
		req := configs[name]
		pdbID := req.PDBID
		p.Tracker.LogProgress(i+1, len(names), pdbID, "Starting")

		result := p.processOne(ctx, req)
		p.Tracker.Record(pdbID, result)

		if metaPath, err := p.Dirs.MetadataFile(pdbID); err == nil {
			if err := p.Tracker.SaveMetadata(pdbID, metaPath, req); err != nil {
				p.Tracker.LogError(pdbID, fmt.Sprintf("saving metadata: %v", err))
			}
		}

		if result.Success {
			p.Tracker.LogSuccess(pdbID, result)
		} else {
			msg := result.Error
			if msg == "" {
				msg = "unknown error"
			}
			p.Tracker.LogError(pdbID, msg)
			if !p.ContinueOnError {
				break
			}
		}
	}

	p.Tracker.LogSummary()
	if err := p.Tracker.SaveSummary(p.Dirs.SummaryFile()); err != nil {
		return p.Tracker.Results(), fmt.Errorf("saving summary: %w", err)
	}
	return p.Tracker.Results(), nil
}

func (p *Processor) processOne(ctx context.Context, req *oprlm.Request) *oprlm.ProcessingResult {
	outDir, err := p.Dirs.PDBOutputDir(req.PDBID)
	if err != nil {
		return &oprlm.ProcessingResult{JobID: req.PDBID, Error: err.Error()}
	}
	// The launch directory layout wins over whatever the config file named.
	run := *req
	run.OutputDir = outDir

	result, err := p.Process(ctx, &run, oprlm.ProcessOptions{Headless: p.Headless})
	if result == nil {
		result = &oprlm.ProcessingResult{JobID: req.PDBID}
		if err != nil {
			result.Error = err.Error()
		}
	}
	return result
}

// DryRun validates every configuration without opening a browser and
// returns the per-config validation errors, keyed by source name.
func DryRun(configs map[string]*oprlm.Request) map[string]error {
	errs := make(map[string]error)
	for name, req := range configs {
		if err := req.Validate(); err != nil {
			errs[name] = err
		}
	}
	return errs
}
