package kb

import (
	"fmt"

	"github.com/letsgopredict/battlepredict/internal/apperrors"
	"github.com/letsgopredict/battlepredict/pkg/typechart"
)

// TypeEffectivenessRow mirrors postgres.TypeEffectivenessRow without
// importing the repository package (kb stays storage-agnostic).
type TypeEffectivenessRow struct {
	AttackerType int
	DefenderType int
	Multiplier   float64
}

// CheckTypeChartTotal verifies that rows cover all 18×18=324 attacker/
// defender pairs and that each recorded multiplier agrees with
// pkg/typechart's in-code table (spec.md §3 invariant ii, §8 testable
// property 1). Used by cmd/kbcheck before a training run is allowed to
// start.
func CheckTypeChartTotal(rows []TypeEffectivenessRow) error {
	seen := make(map[[2]int]bool, len(rows))
	for _, row := range rows {
		seen[[2]int{row.AttackerType, row.DefenderType}] = true
		want := typechart.Multiplier(row.AttackerType, row.DefenderType, -1)
		if row.Multiplier != want {
			return apperrors.New(apperrors.KindDataIntegrityError,
				fmt.Sprintf("type_effectiveness(%d,%d)=%v disagrees with typechart table (%v)",
					row.AttackerType, row.DefenderType, row.Multiplier, want), nil)
		}
	}
	for a := 0; a < typechart.NumTypes; a++ {
		for d := 0; d < typechart.NumTypes; d++ {
			if !seen[[2]int{a, d}] {
				return apperrors.New(apperrors.KindDataIntegrityError,
					fmt.Sprintf("type_effectiveness missing row for attacker=%d defender=%d", a, d), nil)
			}
		}
	}
	return nil
}

// CheckLearnsets verifies that every species' learnset is a subset of known
// move ids (spec.md §3 invariant i), returning every violation rather than
// only the first. Load already rejects the first violation at construction
// time, so on a KB returned by Load this finds none.
func (k *KB) CheckLearnsets() []error {
	var errs []error
	for _, id := range k.speciesIDs {
		s := k.species[id]
		for _, mv := range s.Learnset {
			if _, ok := k.moves[mv]; !ok {
				errs = append(errs, apperrors.New(apperrors.KindDataIntegrityError,
					fmt.Sprintf("species %d (%s) learnset references unknown move id %d", s.ID, s.Name, mv), nil))
			}
		}
	}
	return errs
}
