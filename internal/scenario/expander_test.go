package scenario

import (
	"testing"

	"github.com/letsgopredict/battlepredict/internal/kb"
	"github.com/letsgopredict/battlepredict/internal/model"
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
			{ID: 1, Name: "Tackle", Power: 40, Category: model.Physical},
			{ID: 2, Name: "Thunderbolt", Power: 90, Category: model.Special, Type: 3},
			{ID: 3, Name: "Growl", Power: 0, Category: model.Status},
		},
		species: []model.Species{
			{ID: 1, Name: "Pikachu", Type1: 3, Type2: -1, Learnset: []int{1, 2, 3},
				Stats: model.Stats{HP: 35, Atk: 55, Def: 40, SpAtk: 50, SpDef: 50, Spe: 90}},
			{ID: 2, Name: "Sandshrew", Type1: 8, Type2: -1, Learnset: []int{1, 3},
				Stats: model.Stats{HP: 50, Atk: 75, Def: 85, SpAtk: 20, SpDef: 30, Spe: 40}},
		},
	}
	k, err := kb.Load(src)
	if err != nil {
		t.Fatalf("kb.Load: %v", err)
	}
	return k
}

func TestBestMoveRegimeEmitsOneRecordPerOrderedPair(t *testing.T) {
	k := testKB(t)
	e := New(k, Config{Regime: BestMove})

	var recs []model.DuelRecord
	if err := e.Expand(func(r model.DuelRecord) bool { recs = append(recs, r); return true }); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	// 2 species -> 2 ordered pairs (A,B) and (B,A).
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	for _, r := range recs {
		if r.Scenario != model.ScenarioBestMove {
			t.Fatalf("expected scenario tag best_move, got %v", r.Scenario)
		}
		if r.Winner != 0 && r.Winner != 1 {
			t.Fatalf("winner must be 0 or 1, got %d", r.Winner)
		}
	}
}

func TestRandomMoveRegimeDeterministic(t *testing.T) {
	k := testKB(t)
	cfg := Config{Regime: RandomMove, RandomSamplesPerMatchup: 2, RandomSeed: 42}

	collect := func() []model.DuelRecord {
		e := New(k, cfg)
		var recs []model.DuelRecord
		e.Expand(func(r model.DuelRecord) bool { recs = append(recs, r); return true })
		return recs
	}

	first := collect()
	second := collect()
	if len(first) != len(second) {
		t.Fatalf("nondeterministic record count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].A.Move.ID != second[i].A.Move.ID || first[i].B.Move.ID != second[i].B.Move.ID {
			t.Fatalf("nondeterministic move selection at index %d", i)
		}
	}
}

func TestAllCombinationsCapOneEmitsExactlyOnePerPair(t *testing.T) {
	k := testKB(t)
	e := New(k, Config{Regime: AllCombinations, MaxCombinationsPerMatchup: 1})

	var recs []model.DuelRecord
	e.Expand(func(r model.DuelRecord) bool { recs = append(recs, r); return true })
	// 2 ordered pairs, 1 record each under the cap.
	if len(recs) != 2 {
		t.Fatalf("expected 2 records with max_combinations_per_matchup=1, got %d", len(recs))
	}
}

func TestAllCombinationsUncappedIsFullCartesianProduct(t *testing.T) {
	k := testKB(t)
	e := New(k, Config{Regime: AllCombinations, MaxCombinationsPerMatchup: 0})

	var recs []model.DuelRecord
	e.Expand(func(r model.DuelRecord) bool { recs = append(recs, r); return true })
	// Pikachu has 3 moves, Sandshrew has 2: 3*2 + 2*3 = 12.
	if len(recs) != 12 {
		t.Fatalf("expected 12 records for uncapped all_combinations, got %d", len(recs))
	}
}

func TestYieldFalseStopsExpansionEarly(t *testing.T) {
	k := testKB(t)
	e := New(k, Config{Regime: AllCombinations, MaxCombinationsPerMatchup: 0})

	count := 0
	e.Expand(func(r model.DuelRecord) bool {
		count++
		return count < 3
	})
	if count != 3 {
		t.Fatalf("expected expansion to stop after 3 yields, got %d", count)
	}
}
