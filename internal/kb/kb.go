// Package kb is the read-only projection of the knowledge base: species,
// moves, learnsets and the type-effectiveness table, loaded once into
// immutable in-memory structures keyed by integer id (spec.md §2 component 1,
// §6 External Interfaces). The core never writes to the KB.
package kb

import (
	"fmt"
	"sort"

	"github.com/letsgopredict/battlepredict/internal/apperrors"
	"github.com/letsgopredict/battlepredict/internal/model"
)

// Source is anything that can produce the species (with their learnsets)
// and move relations; the concrete implementation in
// internal/repository/postgres reads them from Postgres. The
// type_effectiveness relation is not part of Source.
// A read-only interface keeps the core decoupled from the storage engine,
// the way the teacher's repositories are decoupled behind small per-entity
// structs.
type Source interface {
	AllSpecies() ([]model.Species, error)
	AllMoves() ([]model.Move, error)
}

// KB is the immutable, queryable in-memory projection. Concurrent readers
// need no locking once Load returns (spec.md §5).
type KB struct {
	species    map[int]model.Species
	moves      map[int]model.Move
	speciesIDs []int // sorted, for deterministic iteration
}

// Load reads the full KB from src and validates spec.md §3's invariants:
// (i) every species' learnset is a subset of move ids, (ii) the type chart
// is total (guaranteed by pkg/typechart, which has no missing entries by
// construction). Returns DataIntegrityError on violation, fatal to the run
// per spec.md §7.
func Load(src Source) (*KB, error) {
	speciesList, err := src.AllSpecies()
	if err != nil {
		return nil, fmt.Errorf("load species: %w", err)
	}
	moveList, err := src.AllMoves()
	if err != nil {
		return nil, fmt.Errorf("load moves: %w", err)
	}

	moves := make(map[int]model.Move, len(moveList))
	for _, m := range moveList {
		moves[m.ID] = m
	}

	species := make(map[int]model.Species, len(speciesList))
	ids := make([]int, 0, len(speciesList))
	for _, s := range speciesList {
		for _, mv := range s.Learnset {
			if _, ok := moves[mv]; !ok {
				return nil, apperrors.New(apperrors.KindDataIntegrityError,
					fmt.Sprintf("species %d (%s) learnset references unknown move id %d", s.ID, s.Name, mv), nil)
			}
		}
		species[s.ID] = s
		ids = append(ids, s.ID)
	}
	sort.Ints(ids)

	return &KB{species: species, moves: moves, speciesIDs: ids}, nil
}

// Species returns the species with the given id, or InvalidSpecies.
func (k *KB) Species(id int) (model.Species, error) {
	s, ok := k.species[id]
	if !ok {
		return model.Species{}, apperrors.New(apperrors.KindInvalidSpecies, fmt.Sprintf("unknown species id %d", id), nil)
	}
	return s, nil
}

// SpeciesByName looks up a species by its canonical, case-sensitive name
// (spec.md §6's "exact case-sensitive match" contract for move/species
// names reaching the core).
func (k *KB) SpeciesByName(name string) (model.Species, error) {
	for _, id := range k.speciesIDs {
		if k.species[id].Name == name {
			return k.species[id], nil
		}
	}
	return model.Species{}, apperrors.New(apperrors.KindInvalidSpecies, fmt.Sprintf("unknown species name %q", name), nil)
}

// Move returns the move with the given id, or InvalidMove.
func (k *KB) Move(id int) (model.Move, error) {
	m, ok := k.moves[id]
	if !ok {
		return model.Move{}, apperrors.New(apperrors.KindInvalidMove, fmt.Sprintf("unknown move id %d", id), nil)
	}
	return m, nil
}

// MoveByName looks up a move by its exact, case-sensitive canonical name.
func (k *KB) MoveByName(name string) (model.Move, error) {
	for _, m := range k.moves {
		if m.Name == name {
			return m, nil
		}
	}
	return model.Move{}, apperrors.New(apperrors.KindInvalidMove, fmt.Sprintf("unknown move name %q", name), nil)
}

// AllSpeciesIDs returns every species id in ascending order, for
// deterministic iteration by the scenario expander.
func (k *KB) AllSpeciesIDs() []int {
	out := make([]int, len(k.speciesIDs))
	copy(out, k.speciesIDs)
	return out
}

// NumSpecies returns the species count (spec.md §1: 188).
func (k *KB) NumSpecies() int { return len(k.species) }

// NumMoves returns the move count (spec.md §1: 226).
func (k *KB) NumMoves() int { return len(k.moves) }
