package oprlm

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/sapelkinAV/protein-manipulation-pipeline/internal/poll"
)

// ServerURL is the entry page of the OPRLM submission form.
const ServerURL = "https://oprlm.org/oprlm_server"

// Wait bounds for the individual workflow phases.
const (
	pageLoadTimeout     = 10 * time.Second
	searchTimeout       = 30 * time.Second
	uploadInputTimeout  = 20 * time.Second
	uploadButtonTimeout = 30 * time.Second
	uploadLoadTimeout   = 120 * time.Second

	// DefaultJobTimeout bounds AwaitCompletion when the caller passes 0.
	DefaultJobTimeout = 3600 * time.Second

	elementPollInterval = 500 * time.Millisecond
	jobPollInterval     = 5 * time.Second
)

// Form control selectors on the server page.
const (
	selModeSelect     = `select[name="fileInputMode"]`
	selSearchBox      = `#search-box`
	selSearchButton   = `div.api-search span.submit-button`
	selChainTable     = `#chain-table`
	selChainCheckbox  = `#chain-table input[type='checkbox']`
	selViewer         = `#viewer-container`
	selViewerLabel    = `#viewer-label`
	selFileInput      = `input[type="file"]`
	selUploadButton   = `#process-upload`
	selUploadError    = `#upload-error`
	selMembraneSelect = `select[name="membraneType"]`
	selPOPC           = `#popc`
	selDOPC           = `#dopc`
	selDSPC           = `#dspc`
	selDMPC           = `#dmpc`
	selDPPC           = `#dppc`
	selCholesterol    = `#chol-value`
	selProteinMargin  = `#protein-size-plus`
	selWaterThickness = `#water-thickness-z`
	selIonSelect      = `select[name="ionType"]`
	selIonConc        = `#ion-concentration`
	selTemperature    = `#temperature`
	selMinimization   = `#charmm-minimization`
	selNAMD           = `#namd`
	selGromacs        = `#gromacs`
	selOpenMM         = `#openmm`
	selEmail          = `#userEmail`
	selSubmit         = `#submit`
	selDownloadPDB    = `#download_pdb`
	selDownloadESS    = `#download_ess`
	selDownloadTGZ    = `#download_tgz`
)

// SessionState tracks the forward-only per-session pipeline.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateReady
	StateModeSelected
	StateStructureLoaded
	StateConfiguredAndSubmitted
	StateJobRunning
	StateJobComplete
	StateJobFailed
	StateJobTimedOut
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateReady:
		return "READY"
	case StateModeSelected:
		return "MODE_SELECTED"
	case StateStructureLoaded:
		return "STRUCTURE_LOADED"
	case StateConfiguredAndSubmitted:
		return "CONFIGURED_AND_SUBMITTED"
	case StateJobRunning:
		return "JOB_RUNNING"
	case StateJobComplete:
		return "JOB_COMPLETE"
	case StateJobFailed:
		return "JOB_FAILED"
	case StateJobTimedOut:
		return "JOB_TIMED_OUT"
	}
	return "UNKNOWN"
}

// Terminal reports whether no further transitions are allowed.
func (s SessionState) Terminal() bool {
	return s == StateJobComplete || s == StateJobFailed || s == StateJobTimedOut
}

// Session owns one browser instance and drives the server's multi-page
// workflow through the forward-only state machine. A Session is
// single-threaded and never shared; Close must run on every exit path, since
// the underlying browser process leaks if it is not terminated. Retries use
// a fresh Session rather than rewinding state.
type Session struct {
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc

	state SessionState
	mode  InputMode
	pdbID string
	url   string
}

// OpenSession launches a controlled browser, navigates to the server entry
// page, and waits (bounded) for the page root to be present.
func OpenSession(ctx context.Context, headless bool) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", headless),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	s := &Session{
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		state:         StateUninitialized,
		url:           ServerURL,
	}

	loadCtx, cancel := context.WithTimeout(browserCtx, pageLoadTimeout)
	defer cancel()
	err := chromedp.Run(loadCtx,
		chromedp.Navigate(s.url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %v", ErrSessionInit, err)
	}
	s.state = StateReady
	return s, nil
}

// State returns the current pipeline state.
func (s *Session) State() SessionState {
	return s.state
}

// Close releases the browser resource. It is safe to call more than once
// and on a session that never initialized.
func (s *Session) Close() error {
	if s.cancelBrowser != nil {
		s.cancelBrowser()
		s.cancelBrowser = nil
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
		s.cancelAlloc = nil
	}
	if !s.state.Terminal() {
		s.state = StateJobFailed
	}
	return nil
}

// SelectInputMode sets the form's mode selector. No network side effect.
func (s *Session) SelectInputMode(mode InputMode) error {
	if s.state != StateReady {
		return fmt.Errorf("%w: select input mode in state %s", ErrFormFill, s.state)
	}
	switch mode {
	case InputModeSearchRCSB, InputModeSearchOPRLM, InputModeUpload:
	default:
		return fmt.Errorf("%w: unknown input mode %q", ErrValidation, mode)
	}
	if err := chromedp.Run(s.browserCtx,
		chromedp.SetValue(selModeSelect, string(mode), chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("%w: mode selector: %v", ErrFormFill, err)
	}
	s.mode = mode
	s.state = StateModeSelected
	return nil
}

// SubmitSearch fills the search field and waits for one of two terminal
// signals: the chain results table (success) or an explicit not-found
// message (failure).
func (s *Session) SubmitSearch(identifier string) error {
	if s.state != StateModeSelected || !s.mode.IsSearch() {
		return fmt.Errorf("%w: search in state %s (mode %q)", ErrFormFill, s.state, s.mode)
	}
	if strings.TrimSpace(identifier) == "" {
		return fmt.Errorf("%w: search identifier must not be empty", ErrValidation)
	}

	err := chromedp.Run(s.browserCtx,
		chromedp.Clear(selSearchBox, chromedp.ByQuery),
		chromedp.SendKeys(selSearchBox, identifier, chromedp.ByQuery),
		chromedp.Click(selSearchButton, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("%w: search controls: %v", ErrFormFill, err)
	}

	var notFoundMsg string
	err = poll.Until(s.browserCtx, elementPollInterval, searchTimeout, func() (bool, error) {
		if ok, err := s.present(selChainTable); err != nil {
			return false, err
		} else if ok {
			return true, nil
		}
		msg, err := s.notFoundMessage()
		if err != nil {
			return false, err
		}
		if msg != "" {
			notFoundMsg = msg
			return true, nil
		}
		return false, nil
	})
	if err == poll.ErrTimeout {
		return fmt.Errorf("%w: no result signal for %q within %s", ErrSearchTimeout, identifier, searchTimeout)
	}
	if err != nil {
		return fmt.Errorf("%w: waiting for search result: %v", ErrSearchTimeout, err)
	}
	if notFoundMsg != "" {
		return fmt.Errorf("%w: %s", ErrStructureNotFound, notFoundMsg)
	}

	// Chains render slightly after the table itself.
	err = poll.Until(s.browserCtx, elementPollInterval, pageLoadTimeout, func() (bool, error) {
		return s.present(selChainCheckbox)
	})
	if err != nil && err != poll.ErrTimeout {
		return fmt.Errorf("%w: waiting for chain list: %v", ErrSearchTimeout, err)
	}

	s.pdbID = identifier
	s.state = StateStructureLoaded
	return nil
}

// SubmitUpload injects a local structure file into the upload control,
// triggers server-side processing, and waits for the structure-loaded
// signals used by search.
func (s *Session) SubmitUpload(path string) error {
	if s.state != StateModeSelected || s.mode != InputModeUpload {
		return fmt.Errorf("%w: upload in state %s (mode %q)", ErrFormFill, s.state, s.mode)
	}
	if err := ValidateStructureFile(path); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFileValidation, path, err)
	}

	err = poll.Until(s.browserCtx, elementPollInterval, uploadInputTimeout, func() (bool, error) {
		return s.present(selFileInput)
	})
	if err == poll.ErrTimeout {
		return fmt.Errorf("%w: file input not present within %s", ErrUploadTimeout, uploadInputTimeout)
	}
	if err != nil {
		return fmt.Errorf("%w: waiting for file input: %v", ErrUploadTimeout, err)
	}

	if err := chromedp.Run(s.browserCtx,
		chromedp.SetUploadFiles(selFileInput, []string{abs}, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("%w: file input: %v", ErrFormFill, err)
	}

	err = poll.Until(s.browserCtx, elementPollInterval, uploadButtonTimeout, func() (bool, error) {
		return s.clickable(selUploadButton)
	})
	if err == poll.ErrTimeout {
		return fmt.Errorf("%w: upload button not clickable within %s", ErrUploadTimeout, uploadButtonTimeout)
	}
	if err != nil {
		return fmt.Errorf("%w: waiting for upload button: %v", ErrUploadTimeout, err)
	}
	if err := chromedp.Run(s.browserCtx, chromedp.Click(selUploadButton, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("%w: upload button: %v", ErrFormFill, err)
	}

	var uploadErr string
	err = poll.Until(s.browserCtx, time.Second, uploadLoadTimeout, func() (bool, error) {
		for _, sel := range []string{selChainTable, selViewer, selViewerLabel} {
			if ok, err := s.present(sel); err != nil {
				return false, err
			} else if ok {
				return true, nil
			}
		}
		msg, err := s.elementText(selUploadError)
		if err != nil {
			return false, err
		}
		if msg != "" {
			uploadErr = msg
			return true, nil
		}
		return false, nil
	})
	if err == poll.ErrTimeout {
		return fmt.Errorf("%w: structure not loaded within %s", ErrUploadTimeout, uploadLoadTimeout)
	}
	if err != nil {
		return fmt.Errorf("%w: waiting for uploaded structure: %v", ErrUploadTimeout, err)
	}
	if uploadErr != "" {
		return fmt.Errorf("%w: %s", ErrUploadProcessing, uploadErr)
	}

	s.pdbID = strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	s.state = StateStructureLoaded
	return nil
}

// ConfigureAndSubmit fills every form field derived from the request and
// clicks submit. The (mode, membrane-config) pair is revalidated first
// because the config may not have come through the builder path.
func (s *Session) ConfigureAndSubmit(req *Request) (JobHandle, error) {
	if s.state != StateStructureLoaded {
		return JobHandle{}, fmt.Errorf("%w: configure in state %s", ErrFormFill, s.state)
	}
	if err := validateModePair(s.mode, &req.Membrane); err != nil {
		return JobHandle{}, err
	}

	if err := s.fillMembraneFields(&req.Membrane); err != nil {
		return JobHandle{}, err
	}
	numeric := []struct {
		sel, value string
	}{
		{selProteinMargin, strconv.Itoa(req.ProteinMargin)},
		{selWaterThickness, formatFloat(req.WaterThickness)},
		{selIonConc, formatFloat(req.Ions.Concentration)},
		{selTemperature, formatFloat(req.Temperature)},
	}
	for _, f := range numeric {
		if err := s.setText(f.sel, f.value); err != nil {
			return JobHandle{}, err
		}
	}
	if err := s.setSelect(selIonSelect, string(req.Ions.Type)); err != nil {
		return JobHandle{}, err
	}
	if err := s.setChecked(selMinimization, req.Minimize); err != nil {
		return JobHandle{}, err
	}
	mdBoxes := []struct {
		sel string
		on  bool
	}{
		{selNAMD, req.MDOptions.NAMD},
		{selGromacs, req.MDOptions.Gromacs},
		{selOpenMM, req.MDOptions.OpenMM},
	}
	for _, box := range mdBoxes {
		if err := s.setChecked(box.sel, box.on); err != nil {
			return JobHandle{}, err
		}
	}
	if req.Email != "" {
		if err := s.setText(selEmail, req.Email); err != nil {
			return JobHandle{}, err
		}
	}

	if err := chromedp.Run(s.browserCtx, chromedp.Click(selSubmit, chromedp.ByQuery)); err != nil {
		return JobHandle{}, fmt.Errorf("%w: submit button: %v", ErrFormFill, err)
	}
	s.state = StateConfiguredAndSubmitted

	handle := JobHandle{ID: s.jobID(req)}
	s.state = StateJobRunning
	return handle, nil
}

// AwaitCompletion polls (bounded, never busy-spinning) until the download
// marker appears. A zero timeout means DefaultJobTimeout.
func (s *Session) AwaitCompletion(handle JobHandle, timeout time.Duration) error {
	if s.state != StateJobRunning {
		return fmt.Errorf("%w: await completion in state %s", ErrFormFill, s.state)
	}
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	err := poll.Until(s.browserCtx, jobPollInterval, timeout, func() (bool, error) {
		return s.present(selDownloadPDB)
	})
	if err == poll.ErrTimeout {
		s.state = StateJobTimedOut
		return fmt.Errorf("%w: job %s not complete within %s", ErrJobTimeout, handle.ID, timeout)
	}
	if err != nil {
		s.state = StateJobFailed
		return fmt.Errorf("%w: waiting for job %s: %v", ErrJobTimeout, handle.ID, err)
	}
	s.state = StateJobComplete
	return nil
}

// ArtifactLinks reads the hrefs of the download links on the completion
// page. Missing links come back empty; the retriever decides how to report
// them.
func (s *Session) ArtifactLinks() (ArtifactLinks, error) {
	if s.state != StateJobComplete {
		return ArtifactLinks{}, fmt.Errorf("%w: read links in state %s", ErrFormFill, s.state)
	}
	var links ArtifactLinks
	fields := []struct {
		sel  string
		dest *string
	}{
		{selDownloadPDB, &links.Structure},
		{selDownloadESS, &links.MDInput},
		{selDownloadTGZ, &links.CharmmGUI},
	}
	for _, f := range fields {
		href, err := s.attribute(f.sel, "href")
		if err != nil {
			return ArtifactLinks{}, err
		}
		*f.dest = href
	}
	return links, nil
}

func (s *Session) fillMembraneFields(m *MembraneConfig) error {
	if err := s.setSelect(selMembraneSelect, string(m.Type)); err != nil {
		return err
	}
	if m.Type == MembraneCustom {
		lipids := []struct {
			sel string
			on  bool
		}{
			{selPOPC, m.POPC},
			{selDOPC, m.DOPC},
			{selDSPC, m.DSPC},
			{selDMPC, m.DMPC},
			{selDPPC, m.DPPC},
		}
		for _, l := range lipids {
			if err := s.setChecked(l.sel, l.on); err != nil {
				return err
			}
		}
		return s.setText(selCholesterol, formatFloat(m.CholPercent))
	}
	// Biological presets expose a protein orientation radio only for the
	// search-RCSB and upload modes; the OPM database carries orientation in
	// its entries already.
	if s.mode == InputModeSearchOPRLM {
		return nil
	}
	return s.setRadio("proteinTopology", string(m.Topology))
}

// jobID extracts the job identifier the server put in the status page URL,
// falling back to the request's structure identifier.
func (s *Session) jobID(req *Request) string {
	var href string
	if err := chromedp.Run(s.browserCtx,
		chromedp.Evaluate(`window.location.href`, &href),
	); err == nil {
		if i := strings.Index(href, "jobid="); i >= 0 {
			id := href[i+len("jobid="):]
			if j := strings.IndexAny(id, "&#"); j >= 0 {
				id = id[:j]
			}
			if id != "" {
				return id
			}
		}
	}
	if req.PDBID != "" {
		return req.PDBID
	}
	return s.pdbID
}

// present reports whether a selector matches anything in the live DOM.
func (s *Session) present(sel string) (bool, error) {
	var found bool
	expr := fmt.Sprintf(`document.querySelector(%s) !== null`, strconv.Quote(sel))
	if err := chromedp.Run(s.browserCtx, chromedp.Evaluate(expr, &found)); err != nil {
		return false, fmt.Errorf("%w: query %s: %v", ErrFormFill, sel, err)
	}
	return found, nil
}

// clickable reports presence plus an enabled state.
func (s *Session) clickable(sel string) (bool, error) {
	var ok bool
	expr := fmt.Sprintf(
		`(function(){ var el = document.querySelector(%s); return el !== null && !el.disabled; })()`,
		strconv.Quote(sel))
	if err := chromedp.Run(s.browserCtx, chromedp.Evaluate(expr, &ok)); err != nil {
		return false, fmt.Errorf("%w: query %s: %v", ErrFormFill, sel, err)
	}
	return ok, nil
}

// elementText returns the trimmed text of the first match, or "" when the
// selector matches nothing.
func (s *Session) elementText(sel string) (string, error) {
	var text string
	expr := fmt.Sprintf(
		`(function(){ var el = document.querySelector(%s); return el ? el.textContent.trim() : ""; })()`,
		strconv.Quote(sel))
	if err := chromedp.Run(s.browserCtx, chromedp.Evaluate(expr, &text)); err != nil {
		return "", fmt.Errorf("%w: query %s: %v", ErrFormFill, sel, err)
	}
	return text, nil
}

// notFoundMessage scans the page for the server's "not found" search
// failure text.
func (s *Session) notFoundMessage() (string, error) {
	var text string
	expr := `(function(){
		var nodes = document.querySelectorAll("div, p, span");
		for (var i = 0; i < nodes.length; i++) {
			var t = nodes[i].textContent || "";
			if (t.indexOf("not found") !== -1 && nodes[i].children.length === 0) {
				return t.trim();
			}
		}
		return "";
	})()`
	if err := chromedp.Run(s.browserCtx, chromedp.Evaluate(expr, &text)); err != nil {
		return "", fmt.Errorf("%w: scanning for not-found message: %v", ErrFormFill, err)
	}
	return text, nil
}

func (s *Session) attribute(sel, name string) (string, error) {
	var value string
	expr := fmt.Sprintf(
		`(function(){ var el = document.querySelector(%s); return el ? (el.getAttribute(%s) || "") : ""; })()`,
		strconv.Quote(sel), strconv.Quote(name))
	if err := chromedp.Run(s.browserCtx, chromedp.Evaluate(expr, &value)); err != nil {
		return "", fmt.Errorf("%w: attribute %s of %s: %v", ErrFormFill, name, sel, err)
	}
	return value, nil
}

// setText requires the control to be present, then replaces its value.
func (s *Session) setText(sel, value string) error {
	if ok, err := s.present(sel); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: control %s absent from page", ErrFormFill, sel)
	}
	if err := chromedp.Run(s.browserCtx,
		chromedp.Clear(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("%w: control %s: %v", ErrFormFill, sel, err)
	}
	return nil
}

func (s *Session) setSelect(sel, value string) error {
	if ok, err := s.present(sel); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: control %s absent from page", ErrFormFill, sel)
	}
	if err := chromedp.Run(s.browserCtx,
		chromedp.SetValue(sel, value, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("%w: control %s: %v", ErrFormFill, sel, err)
	}
	return nil
}

func (s *Session) setChecked(sel string, on bool) error {
	if ok, err := s.present(sel); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: control %s absent from page", ErrFormFill, sel)
	}
	expr := fmt.Sprintf(
		`(function(){ var el = document.querySelector(%s); el.checked = %t; el.dispatchEvent(new Event("change", {bubbles: true})); return el.checked; })()`,
		strconv.Quote(sel), on)
	var checked bool
	if err := chromedp.Run(s.browserCtx, chromedp.Evaluate(expr, &checked)); err != nil {
		return fmt.Errorf("%w: control %s: %v", ErrFormFill, sel, err)
	}
	return nil
}

func (s *Session) setRadio(name, value string) error {
	sel := fmt.Sprintf(`input[name="%s"][value="%s"]`, name, value)
	if ok, err := s.present(sel); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: control %s absent from page", ErrFormFill, sel)
	}
	if err := chromedp.Run(s.browserCtx, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("%w: control %s: %v", ErrFormFill, sel, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
