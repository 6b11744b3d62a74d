package oprlm

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sapelkinAV/protein-manipulation-pipeline/internal/poll"
)

// Client is the non-UI variant: it talks to the server's REST endpoints
// directly instead of driving the HTML form.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	// StaticMirrors are tried in order by DownloadPDB; %s receives the
	// lower-cased structure identifier.
	StaticMirrors []string
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = ServerURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 5 * time.Minute},
		StaticMirrors: []string{
			"https://oprlm.org/static/%s.pdb",
			"https://storage.googleapis.com/opm-assets/pdb/%s.pdb",
		},
	}
}

// JobStatus is the server's view of one orient job.
type JobStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// DownloadPDB fetches a structure from the static mirrors. When the body
// does not look like a structure file the client retries it as gzip, since
// some mirrors serve compressed files without a content-encoding header.
func (c *Client) DownloadPDB(ctx context.Context, pdbID, outPath string) error {
	var lastErr error
	for _, mirror := range c.StaticMirrors {
		url := fmt.Sprintf(mirror, strings.ToLower(pdbID))
		body, err := c.get(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		if !looksLikePDB(body) {
			if decoded, err := gunzip(body); err == nil && looksLikePDB(decoded) {
				body = decoded
			} else {
				lastErr = fmt.Errorf("%s did not return a structure file", url)
				continue
			}
		}
		return os.WriteFile(outPath, body, 0o644)
	}
	return fmt.Errorf("%w: downloading %s: %v", ErrNetwork, pdbID, lastErr)
}

// UploadPDB posts a structure to the orient endpoint and returns the job id.
func (c *Client) UploadPDB(ctx context.Context, pdbFile string) (string, error) {
	f, err := os.Open(pdbFile)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFileValidation, pdbFile, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(pdbFile))
	if err != nil {
		return "", fmt.Errorf("%w: building upload form: %v", ErrNetwork, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrNetwork, pdbFile, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: building upload form: %v", ErrNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/orient", &buf)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: orient returned status %d: %s", ErrNetwork, resp.StatusCode, string(body))
	}

	var result struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decoding orient response: %v", ErrNetwork, err)
	}
	if result.JobID == "" {
		return "", fmt.Errorf("%w: orient response carried no job id", ErrNetwork)
	}
	return result.JobID, nil
}

// GetJobStatus fetches the status of an orient job.
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/job/%s", c.BaseURL, jobID))
	if err != nil {
		return nil, fmt.Errorf("%w: job status %s: %v", ErrNetwork, jobID, err)
	}
	var status JobStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("%w: decoding job status: %v", ErrNetwork, err)
	}
	return &status, nil
}

// DownloadAligned fetches the oriented structure of a completed job.
func (c *Client) DownloadAligned(ctx context.Context, jobID, outPath string) error {
	body, err := c.get(ctx, fmt.Sprintf("%s/job/%s/download", c.BaseURL, jobID))
	if err != nil {
		return fmt.Errorf("%w: downloading job %s: %v", ErrNetwork, jobID, err)
	}
	return os.WriteFile(outPath, body, 0o644)
}

// OrientPDB runs the full REST workflow: upload, poll until completion,
// download. A zero interval polls every 2s; a zero timeout bounds at 5m.
func (c *Client) OrientPDB(ctx context.Context, pdbFile, outPath string, interval, timeout time.Duration) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	jobID, err := c.UploadPDB(ctx, pdbFile)
	if err != nil {
		return err
	}

	var jobErr error
	err = poll.Until(ctx, interval, timeout, func() (bool, error) {
		status, err := c.GetJobStatus(ctx, jobID)
		if err != nil {
			return false, err
		}
		switch status.Status {
		case "completed":
			return true, nil
		case "failed", "error":
			msg := status.Error
			if msg == "" {
				msg = "unknown error"
			}
			jobErr = fmt.Errorf("%w: orient job %s failed: %s", ErrUploadProcessing, jobID, msg)
			return true, nil
		default:
			return false, nil
		}
	})
	if err == poll.ErrTimeout {
		return fmt.Errorf("%w: orient job %s not complete within %s", ErrJobTimeout, jobID, timeout)
	}
	if err != nil {
		return err
	}
	if jobErr != nil {
		return jobErr
	}

	return c.DownloadAligned(ctx, jobID, outPath)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// looksLikePDB checks for the record-type markers every structure file
// carries.
func looksLikePDB(body []byte) bool {
	text := string(body)
	for _, marker := range []string{"ATOM", "HETATM", "HEADER", "data_"} {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func gunzip(body []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
