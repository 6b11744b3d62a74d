package oprlm

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ArtifactLinks holds the download URLs exposed on the completion page.
// An empty entry means the server did not expose that link.
type ArtifactLinks struct {
	Structure string
	MDInput   string
	CharmmGUI string
}

// Artifact file names written into the output directory.
const (
	structureFileName = "step5_assembly.pdb"
	mdInputFileName   = "md_input.tgz"
	charmmGUIFileName = "charmm-gui.tgz"
)

// Retriever downloads completed-job artifacts into a local directory using
// streamed writes, so large archives never sit in memory.
type Retriever struct {
	HTTP      *http.Client
	UserAgent string
	Referer   string
}

// NewRetriever returns a retriever with the headers the server expects on
// artifact downloads.
func NewRetriever() *Retriever {
	return &Retriever{
		HTTP:      &http.Client{Timeout: 10 * time.Minute},
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36",
		Referer:   "https://oprlm.org/",
	}
}

// RetrievedFiles carries the local paths of the artifacts that were
// actually downloaded.
type RetrievedFiles struct {
	StructurePath string
	MDInputPath   string
	CharmmGUIPath string
}

// Retrieve fetches each linked artifact into dir. A missing link is logged
// as a warning and skipped; the job still completed, so partial result sets
// are a valid outcome. When some but not all artifacts arrive the returned
// error wraps ErrPartialResult and the files are still usable. Only a fully
// empty result is an ErrNetwork failure.
func (r *Retriever) Retrieve(ctx context.Context, links ArtifactLinks, dir string) (RetrievedFiles, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return RetrievedFiles{}, fmt.Errorf("%w: creating %s: %v", ErrNetwork, dir, err)
	}

	var files RetrievedFiles
	expected := 0
	retrieved := 0

	artifacts := []struct {
		url  string
		name string
		dest *string
	}{
		{links.Structure, structureFileName, &files.StructurePath},
		{links.MDInput, mdInputFileName, &files.MDInputPath},
		{links.CharmmGUI, charmmGUIFileName, &files.CharmmGUIPath},
	}
	for _, a := range artifacts {
		expected++
		if a.url == "" {
			log.Printf("Warning: %s link not found, skipping", a.name)
			continue
		}
		path := filepath.Join(dir, a.name)
		if err := r.download(ctx, a.url, path); err != nil {
			log.Printf("Warning: downloading %s: %v", a.name, err)
			continue
		}
		*a.dest = path
		retrieved++
	}

	if retrieved == 0 {
		return files, fmt.Errorf("%w: no artifacts retrieved from %d links", ErrNetwork, expected)
	}
	if retrieved < expected {
		return files, fmt.Errorf("%w: retrieved %d of %d artifacts", ErrPartialResult, retrieved, expected)
	}
	return files, nil
}

func (r *Retriever) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}
	if r.Referer != "" {
		req.Header.Set("Referer", r.Referer)
	}

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
