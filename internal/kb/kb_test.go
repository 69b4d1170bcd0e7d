package kb

import (
	"testing"

	"github.com/letsgopredict/battlepredict/internal/model"
)

type fakeSource struct {
	species []model.Species
	moves   []model.Move
}

func (f fakeSource) AllSpecies() ([]model.Species, error) { return f.species, nil }
func (f fakeSource) AllMoves() ([]model.Move, error)       { return f.moves, nil }

func validSource() fakeSource {
	return fakeSource{
		moves: []model.Move{
			{ID: 1, Name: "Tackle", Power: 40},
			{ID: 2, Name: "Thunderbolt", Power: 90},
		},
		species: []model.Species{
			{ID: 100, Name: "Pikachu", Learnset: []int{1, 2}},
			{ID: 101, Name: "Rattata", Learnset: []int{1}},
		},
	}
}

func TestLoadSucceedsOnConsistentKB(t *testing.T) {
	k, err := Load(validSource())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k.NumSpecies() != 2 || k.NumMoves() != 2 {
		t.Fatalf("unexpected counts: %d species, %d moves", k.NumSpecies(), k.NumMoves())
	}
}

func TestLoadRejectsUnknownMoveInLearnset(t *testing.T) {
	src := validSource()
	src.species[0].Learnset = append(src.species[0].Learnset, 999)
	if _, err := Load(src); err == nil {
		t.Fatal("expected DataIntegrityError for unknown move id in learnset")
	}
}

func TestSpeciesByNameAndMoveByName(t *testing.T) {
	k, err := Load(validSource())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := k.SpeciesByName("Pikachu"); err != nil {
		t.Fatalf("expected Pikachu to be found: %v", err)
	}
	if _, err := k.SpeciesByName("pikachu"); err == nil {
		t.Fatal("lookup must be case-sensitive (spec.md §6): lowercase should not match")
	}
	if _, err := k.MoveByName("Thunderbolt"); err != nil {
		t.Fatalf("expected Thunderbolt to be found: %v", err)
	}
	if _, err := k.MoveByName("Hyper Beam"); err == nil {
		t.Fatal("expected InvalidMove for unknown move name")
	}
}
