package registry

import (
	"testing"

	"github.com/letsgopredict/battlepredict/internal/model"
)

func bundle(metric float64) Bundle {
	return Bundle{
		ModelBytes:   []byte("model"),
		ScalersBytes: []byte("scalers"),
		Metadata:     model.Metadata{Metrics: map[string]float64{"test_accuracy": metric}},
	}
}

func TestRegisterAllocatesMonotonicVersions(t *testing.T) {
	r, err := Open(t.TempDir(), "battlepredict")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	v1, err := r.Register(bundle(0.81))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	v2, err := r.Register(bundle(0.85))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if v1 != 1 || v2 != 2 {
		t.Fatalf("expected versions 1,2, got %d,%d", v1, v2)
	}
}

func TestPromoteToProductionArchivesPrevious(t *testing.T) {
	r, _ := Open(t.TempDir(), "battlepredict")
	v1, _ := r.Register(bundle(0.81))
	v2, _ := r.Register(bundle(0.85))

	if err := r.Promote(v1, model.StageProduction); err != nil {
		t.Fatalf("Promote v1: %v", err)
	}
	if err := r.Promote(v2, model.StageProduction); err != nil {
		t.Fatalf("Promote v2: %v", err)
	}

	_, loadedVersion, err := r.Load(model.StageProduction)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loadedVersion != v2 {
		t.Fatalf("expected production version %d, got %d", v2, loadedVersion)
	}

	m1, err := r.readMetadata(v1)
	if err != nil {
		t.Fatalf("readMetadata v1: %v", err)
	}
	if m1.Stage != model.StageArchived {
		t.Fatalf("expected v1 to be archived after v2 promotion, got %v", m1.Stage)
	}
}

func TestLoadFailsWithModelNotAvailableWhenEmpty(t *testing.T) {
	r, _ := Open(t.TempDir(), "battlepredict")
	if _, _, err := r.Load(model.StageProduction); err == nil {
		t.Fatal("expected ModelNotAvailable for empty registry")
	}
}

func TestPromoteBestRespectsThreshold(t *testing.T) {
	r, _ := Open(t.TempDir(), "battlepredict")
	r.Register(bundle(0.70))
	v2, _ := r.Register(bundle(0.90))

	version, promoted, err := r.PromoteBest("test_accuracy", 0.80)
	if err != nil {
		t.Fatalf("PromoteBest: %v", err)
	}
	if !promoted || version != v2 {
		t.Fatalf("expected v%d promoted, got version=%d promoted=%v", v2, version, promoted)
	}
}

func TestPromoteBestNoOpBelowThreshold(t *testing.T) {
	r, _ := Open(t.TempDir(), "battlepredict")
	r.Register(bundle(0.5))
	r.Register(bundle(0.6))

	_, promoted, err := r.PromoteBest("test_accuracy", 0.80)
	if err != nil {
		t.Fatalf("PromoteBest: %v", err)
	}
	if promoted {
		t.Fatal("expected no-op when no version clears threshold")
	}
}

func TestOpenReloadsPersistedIndex(t *testing.T) {
	dir := t.TempDir()
	r1, _ := Open(dir, "battlepredict")
	v1, _ := r1.Register(bundle(0.9))
	r1.Promote(v1, model.StageProduction)

	r2, err := Open(dir, "battlepredict")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_, version, err := r2.Load(model.StageProduction)
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if version != v1 {
		t.Fatalf("expected reopened registry to see version %d, got %d", v1, version)
	}
}
