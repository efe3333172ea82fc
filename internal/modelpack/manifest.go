package modelpack

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ManifestFile is written to the output directory after every run.
const ManifestFile = "manifest.json"

// Manifest records which models the output directory can serve.
type Manifest struct {
	Generated time.Time         `json:"generated"`
	Models    map[string]Result `json:"models"`
}

var manifestMu sync.Mutex

// WriteManifest merges report into the manifest in dir, so a run over a
// subset of models keeps the entries of the others.
func WriteManifest(dir string, report *Report) error {
	manifestMu.Lock()
	defer manifestMu.Unlock()

	m, err := ReadManifest(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if m == nil {
		m = &Manifest{}
	}
	if m.Models == nil {
		m.Models = make(map[string]Result)
	}
	for _, res := range report.Results {
		m.Models[res.Model] = res
	}
	m.Generated = time.Now().UTC()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	tmp := filepath.Join(dir, ManifestFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return os.Rename(tmp, filepath.Join(dir, ManifestFile))
}

// ReadManifest loads dir's manifest. The error wraps os.ErrNotExist when
// the directory has never been packed.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Resolver maps model URLs under SourcePrefix onto OutputPrefix for every
// model the manifest marks servable.
type Resolver struct {
	Dir          string
	SourcePrefix string
	OutputPrefix string

	mu       sync.RWMutex
	servable map[string]bool
}

// NewResolver creates a resolver for the output directory dir and loads its
// manifest. A missing manifest is not an error: every model then resolves
// to its original URL.
func NewResolver(dir, sourcePrefix, outputPrefix string) (*Resolver, error) {
	r := &Resolver{
		Dir:          dir,
		SourcePrefix: strings.TrimSuffix(sourcePrefix, "/"),
		OutputPrefix: strings.TrimSuffix(outputPrefix, "/"),
	}
	return r, r.Reload()
}

// Reload re-reads the manifest.
func (r *Resolver) Reload() error {
	servable := make(map[string]bool)
	m, err := ReadManifest(r.Dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return err
	default:
		for name, res := range m.Models {
			if res.Servable() {
				servable[name] = true
			}
		}
	}
	r.mu.Lock()
	r.servable = servable
	r.mu.Unlock()
	return nil
}

// Available returns the number of servable compressed models.
func (r *Resolver) Available() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.servable)
}

// Resolve implements scene.Resolver.
func (r *Resolver) Resolve(u string) (string, bool) {
	rest, ok := strings.CutPrefix(u, r.SourcePrefix+"/")
	if !ok {
		return u, false
	}
	model, _, _ := strings.Cut(rest, "/")

	r.mu.RLock()
	ok = r.servable[model]
	r.mu.RUnlock()
	if !ok {
		return u, false
	}
	return path.Join(r.OutputPrefix, rest), true
}
