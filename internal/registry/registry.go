// Package registry implements the filesystem-backed artifact registry
// spec.md §4.6 describes: a directory of versioned bundles tagged with a
// lifecycle stage, plus a small JSON index recording which version holds
// each stage. Concurrency follows the same single mutex-guarded swap
// pattern the bot's ONNX strategy uses for its loaded session (spec.md §5:
// "both require exclusive access and take a process-wide write lock for the
// duration of swap").
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/letsgopredict/battlepredict/internal/apperrors"
	"github.com/letsgopredict/battlepredict/internal/model"
)

// Bundle is one registered artifact: the serialized model weights, the
// feature pipeline's scaler state, and its metadata.
type Bundle struct {
	ModelBytes   []byte
	ScalersBytes []byte
	Metadata     model.Metadata
}

// index is the registry-level JSON file (<name>_index.json) tracking every
// version's current stage, so load(stage) doesn't need to scan every
// metadata.json on each call.
type index struct {
	Versions map[int]model.Stage `json:"versions"`
}

// Registry is a directory of versioned bundles under RootDir, one
// subdirectory per version named "<name>_v<version>".
type Registry struct {
	mu      sync.RWMutex
	rootDir string
	name    string
	idx     index
}

// Open loads (or initializes) a registry rooted at rootDir for model name.
func Open(rootDir, name string) (*Registry, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("registry: create root dir: %w", err)
	}
	r := &Registry{rootDir: rootDir, name: name, idx: index{Versions: map[int]model.Stage{}}}

	path := r.indexPath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read index: %w", err)
	}
	if err := json.Unmarshal(data, &r.idx); err != nil {
		return nil, fmt.Errorf("registry: parse index: %w", err)
	}
	return r, nil
}

func (r *Registry) indexPath() string {
	return filepath.Join(r.rootDir, r.name+"_index.json")
}

func (r *Registry) versionDir(version int) string {
	return filepath.Join(r.rootDir, fmt.Sprintf("%s_v%d", r.name, version))
}

func (r *Registry) persistIndex() error {
	data, err := json.MarshalIndent(r.idx, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: marshal index: %w", err)
	}
	return os.WriteFile(r.indexPath(), data, 0o644)
}

// nextVersion returns the next monotonically increasing integer version.
func (r *Registry) nextVersion() int {
	max := 0
	for v := range r.idx.Versions {
		if v > max {
			max = v
		}
	}
	return max + 1
}

// Register allocates a new version in stage `none` and writes model.bin,
// scalers.pkl, and metadata.json to its directory (spec.md §4.6 register).
func (r *Registry) Register(b Bundle) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	version := r.nextVersion()
	dir := r.versionDir(version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("registry: create version dir: %w", err)
	}

	b.Metadata.Version = version
	b.Metadata.Name = r.name
	b.Metadata.Stage = model.StageNone

	if err := os.WriteFile(filepath.Join(dir, "model.bin"), b.ModelBytes, 0o644); err != nil {
		return 0, fmt.Errorf("registry: write model.bin: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "scalers.pkl"), b.ScalersBytes, 0o644); err != nil {
		return 0, fmt.Errorf("registry: write scalers.pkl: %w", err)
	}
	metaBytes, err := json.MarshalIndent(b.Metadata, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("registry: marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), metaBytes, 0o644); err != nil {
		return 0, fmt.Errorf("registry: write metadata.json: %w", err)
	}

	r.idx.Versions[version] = model.StageNone
	if err := r.persistIndex(); err != nil {
		return 0, err
	}
	return version, nil
}

// readMetadata loads metadata.json for a version without holding the lock
// (callers must already hold it, or accept a benign race against a
// concurrent Promote — metadata.json itself is never mutated after write
// except for its Stage field, which Promote updates atomically below).
func (r *Registry) readMetadata(version int) (model.Metadata, error) {
	data, err := os.ReadFile(filepath.Join(r.versionDir(version), "metadata.json"))
	if err != nil {
		return model.Metadata{}, fmt.Errorf("registry: read metadata for v%d: %w", version, err)
	}
	var m model.Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return model.Metadata{}, fmt.Errorf("registry: parse metadata for v%d: %w", version, err)
	}
	return m, nil
}

func (r *Registry) writeStage(version int, stage model.Stage) error {
	m, err := r.readMetadata(version)
	if err != nil {
		return err
	}
	m.Stage = stage
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: marshal metadata: %w", err)
	}
	return os.WriteFile(filepath.Join(r.versionDir(version), "metadata.json"), data, 0o644)
}

// Promote transitions version to targetStage. Promoting to production
// atomically archives whatever version currently holds it (spec.md §4.6).
func (r *Registry) Promote(version int, targetStage model.Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.idx.Versions[version]; !ok {
		return apperrors.New(apperrors.KindModelNotAvailable, fmt.Sprintf("no such version %d", version), nil)
	}

	if targetStage == model.StageProduction {
		for v, stage := range r.idx.Versions {
			if stage == model.StageProduction && v != version {
				if err := r.writeStage(v, model.StageArchived); err != nil {
					return err
				}
				r.idx.Versions[v] = model.StageArchived
			}
		}
	}

	if err := r.writeStage(version, targetStage); err != nil {
		return err
	}
	r.idx.Versions[version] = targetStage
	return r.persistIndex()
}

// PromoteBest inspects every version's metadata and promotes the one with
// the greatest `metric` value to production, provided it clears threshold
// (spec.md §4.6 promote_best). No-op (returns 0, false) if nothing clears
// the bar.
func (r *Registry) PromoteBest(metric string, threshold float64) (int, bool, error) {
	r.mu.RLock()
	versions := make([]int, 0, len(r.idx.Versions))
	for v := range r.idx.Versions {
		versions = append(versions, v)
	}
	r.mu.RUnlock()
	sort.Ints(versions)

	bestVersion := 0
	bestValue := threshold
	found := false
	for _, v := range versions {
		m, err := r.readMetadata(v)
		if err != nil {
			return 0, false, err
		}
		val, ok := m.Metrics[metric]
		if !ok {
			continue
		}
		if val >= bestValue {
			bestValue = val
			bestVersion = v
			found = true
		}
	}
	if !found {
		return 0, false, nil
	}
	if err := r.Promote(bestVersion, model.StageProduction); err != nil {
		return 0, false, err
	}
	return bestVersion, true, nil
}

// Load returns the current bundle for the given stage (default production),
// failing with ModelNotAvailable if none exists (spec.md §4.6 load).
func (r *Registry) Load(stage model.Stage) (Bundle, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if stage == "" {
		stage = model.StageProduction
	}
	version := 0
	for v, s := range r.idx.Versions {
		if s == stage && v > version {
			version = v
		}
	}
	if version == 0 {
		return Bundle{}, 0, apperrors.New(apperrors.KindModelNotAvailable,
			fmt.Sprintf("no version in stage %q for model %q", stage, r.name), nil)
	}

	dir := r.versionDir(version)
	modelBytes, err := os.ReadFile(filepath.Join(dir, "model.bin"))
	if err != nil {
		return Bundle{}, 0, fmt.Errorf("registry: read model.bin: %w", err)
	}
	scalerBytes, err := os.ReadFile(filepath.Join(dir, "scalers.pkl"))
	if err != nil {
		return Bundle{}, 0, fmt.Errorf("registry: read scalers.pkl: %w", err)
	}
	meta, err := r.readMetadata(version)
	if err != nil {
		return Bundle{}, 0, err
	}
	return Bundle{ModelBytes: modelBytes, ScalersBytes: scalerBytes, Metadata: meta}, version, nil
}
