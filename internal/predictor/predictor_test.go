package predictor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/letsgopredict/battlepredict/internal/features"
	"github.com/letsgopredict/battlepredict/internal/kb"
	"github.com/letsgopredict/battlepredict/internal/model"
	"github.com/letsgopredict/battlepredict/internal/registry"
	"github.com/letsgopredict/battlepredict/internal/train"
)

type fakeSource struct {
	species []model.Species
	moves   []model.Move
}

func (f fakeSource) AllSpecies() ([]model.Species, error) { return f.species, nil }
func (f fakeSource) AllMoves() ([]model.Move, error)       { return f.moves, nil }

func testKB(t *testing.T) *kb.KB {
	t.Helper()
	src := fakeSource{
		moves: []model.Move{
			{ID: 1, Name: "Thunderbolt", Type: 3, Category: model.Special, Power: 90, Accuracy: 100},
			{ID: 2, Name: "Dig", Type: 8, Category: model.Physical, Power: 80, Accuracy: 100},
		},
		species: []model.Species{
			{ID: 1, Name: "Pikachu", Type1: 3, Type2: -1, Learnset: []int{1},
				Stats: model.Stats{HP: 35, Atk: 55, Def: 40, SpAtk: 50, SpDef: 50, Spe: 90}},
			{ID: 2, Name: "Sandshrew", Type1: 8, Type2: -1, Learnset: []int{2},
				Stats: model.Stats{HP: 50, Atk: 75, Def: 85, SpAtk: 20, SpDef: 30, Spe: 40}},
		},
	}
	k, err := kb.Load(src)
	if err != nil {
		t.Fatalf("kb.Load: %v", err)
	}
	return k
}

// writeLocalFallback fits a toy model over a couple of synthetic records and
// writes it to dir in the flat model.bin/scalers.pkl layout Predictor's
// fallback path expects.
func writeLocalFallback(t *testing.T, dir string) {
	t.Helper()
	k := testKB(t)
	pikachu, _ := k.Species(1)
	sandshrew, _ := k.Species(2)
	thunderbolt, _ := k.Move(1)
	dig, _ := k.Move(2)

	records := []model.DuelRecord{
		{A: model.Combatant{Species: pikachu, Move: thunderbolt}, B: model.Combatant{Species: sandshrew, Move: dig}, Winner: 1},
		{A: model.Combatant{Species: sandshrew, Move: dig}, B: model.Combatant{Species: pikachu, Move: thunderbolt}, Winner: 0},
	}

	pipeline := &features.Pipeline{}
	x := pipeline.Fit(records)
	y := []float64{1, 0}

	m := train.Fit(train.DefaultParams(), x, y, x, y)
	modelBytes, err := m.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	scalerBytes, err := pipeline.Bundle().Marshal()
	if err != nil {
		t.Fatalf("Marshal scalers: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "model.bin"), modelBytes, 0o644); err != nil {
		t.Fatalf("write model.bin: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "scalers.pkl"), scalerBytes, 0o644); err != nil {
		t.Fatalf("write scalers.pkl: %v", err)
	}
}

func TestNewFallsBackToLocalWhenRegistryIsNil(t *testing.T) {
	dir := t.TempDir()
	writeLocalFallback(t, dir)

	p, err := New(nil, dir, testKB(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := p.Predict(context.Background(), 1, 2, 1, 2)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if result.PA+result.PB != 1 {
		t.Fatalf("p_a + p_b must sum to 1, got %v + %v", result.PA, result.PB)
	}
}

// TestReloadFallsBackOnColumnOrderMismatch registers a production bundle
// whose Metadata.ColumnOrder disagrees with the pipeline's current schema
// and checks the predictor refuses it and falls through to the local
// fallback bundle instead of loading it (spec.md §3 invariant iv, §7
// SchemaMismatch, §8 testable property 5).
func TestReloadFallsBackOnColumnOrderMismatch(t *testing.T) {
	dir := t.TempDir()
	writeLocalFallback(t, dir)

	regDir := t.TempDir()
	reg, err := registry.Open(regDir, "battlepredict")
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}

	k := testKB(t)
	pikachu, _ := k.Species(1)
	sandshrew, _ := k.Species(2)
	thunderbolt, _ := k.Move(1)
	dig, _ := k.Move(2)
	records := []model.DuelRecord{
		{A: model.Combatant{Species: pikachu, Move: thunderbolt}, B: model.Combatant{Species: sandshrew, Move: dig}, Winner: 1},
		{A: model.Combatant{Species: sandshrew, Move: dig}, B: model.Combatant{Species: pikachu, Move: thunderbolt}, Winner: 0},
	}
	pipeline := &features.Pipeline{}
	x := pipeline.Fit(records)
	y := []float64{1, 0}
	m := train.Fit(train.DefaultParams(), x, y, x, y)
	modelBytes, err := m.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	scalerBytes, err := pipeline.Bundle().Marshal()
	if err != nil {
		t.Fatalf("Marshal scalers: %v", err)
	}

	version, err := reg.Register(registry.Bundle{
		ModelBytes:   modelBytes,
		ScalersBytes: scalerBytes,
		Metadata:     model.Metadata{ColumnOrder: []string{"wrong", "column", "order"}},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Promote(version, model.StageProduction); err != nil {
		t.Fatalf("Promote: %v", err)
	}

	p, err := New(reg, dir, testKB(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := p.Predict(context.Background(), 1, 2, 1, 2)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if result.ModelVersion != 0 {
		t.Fatalf("expected predictor to fall through to the local fallback bundle (version 0), got version %d", result.ModelVersion)
	}
}

func TestNewFailsWhenBothSourcesMissing(t *testing.T) {
	if _, err := New(nil, t.TempDir(), testKB(t)); err == nil {
		t.Fatal("expected error when neither registry nor local fallback is available")
	}
}

func TestConfidenceBucketBoundaries(t *testing.T) {
	cases := map[float64]string{
		0.5:  "low",
		0.4:  "low",
		0.6:  "low",
		0.8:  "high",
		0.2:  "high",
		0.95: "high",
		0.05: "high",
		0.7:  "medium",
		0.3:  "medium",
	}
	for p, want := range cases {
		if got := ConfidenceBucket(p); got != want {
			t.Fatalf("ConfidenceBucket(%v) = %q, want %q", p, got, want)
		}
	}
}

func TestPredictRejectsMoveNotInLearnset(t *testing.T) {
	dir := t.TempDir()
	writeLocalFallback(t, dir)
	p, err := New(nil, dir, testKB(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Predict(context.Background(), 1, 2, 2, 2); err == nil {
		t.Fatal("expected InvalidMove error: Pikachu does not know Dig")
	}
}

func TestBestMoveDefaultsToFullLearnsetAndReturnsAllScored(t *testing.T) {
	dir := t.TempDir()
	writeLocalFallback(t, dir)
	p, err := New(nil, dir, testKB(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := p.BestMove(context.Background(), 1, 2, nil, nil, 0)
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if len(result.ScoredCandidates) != 1 {
		t.Fatalf("expected 1 scored candidate (Pikachu's whole learnset), got %d", len(result.ScoredCandidates))
	}
	if result.RecommendedMoveID != 1 {
		t.Fatalf("expected recommended move 1, got %d", result.RecommendedMoveID)
	}
}

func TestBestMoveAdversarialUsesWorstCase(t *testing.T) {
	dir := t.TempDir()
	writeLocalFallback(t, dir)
	p, err := New(nil, dir, testKB(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Opponent only knows Dig (move 2); min-max over a single opponent move
	// degenerates to the same score as the undirected case.
	result, err := p.BestMove(context.Background(), 1, 2, nil, []int{2}, 0)
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if result.RecommendedMoveID != 1 {
		t.Fatalf("expected recommended move 1, got %d", result.RecommendedMoveID)
	}
}

func TestBestMoveRespectsDeadline(t *testing.T) {
	dir := t.TempDir()
	writeLocalFallback(t, dir)
	p, err := New(nil, dir, testKB(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)
	if _, err := p.BestMove(ctx, 1, 2, nil, nil, time.Hour); err == nil {
		t.Fatal("expected DeadlineExceeded when the caller's context is already past its deadline")
	}
}
