package dataset

import (
	"testing"

	"github.com/letsgopredict/battlepredict/internal/model"
)

func records(n int) []model.DuelRecord {
	out := make([]model.DuelRecord, n)
	for i := range out {
		out[i] = model.DuelRecord{Winner: i % 2}
	}
	return out
}

func TestStratifiedSplitPreservesLabelRatio(t *testing.T) {
	recs := records(100) // 50 label-0, 50 label-1
	split := StratifiedSplit(recs, 7, 0.2)

	if len(split.Train)+len(split.Test) != len(recs) {
		t.Fatalf("split dropped records: train=%d test=%d total=%d", len(split.Train), len(split.Test), len(recs))
	}

	count := func(rs []model.DuelRecord, label int) int {
		c := 0
		for _, r := range rs {
			if r.Winner == label {
				c++
			}
		}
		return c
	}
	if got := count(split.Test, 0); got != 10 {
		t.Fatalf("expected 10 label-0 test records (20%% of 50), got %d", got)
	}
	if got := count(split.Test, 1); got != 10 {
		t.Fatalf("expected 10 label-1 test records, got %d", got)
	}
}

func TestStratifiedSplitDeterministic(t *testing.T) {
	recs := records(40)
	a := StratifiedSplit(recs, 99, 0.25)
	b := StratifiedSplit(recs, 99, 0.25)
	if len(a.Train) != len(b.Train) || len(a.Test) != len(b.Test) {
		t.Fatalf("split size differs across runs with identical seed")
	}
	for i := range a.Train {
		if a.Train[i].Winner != b.Train[i].Winner {
			t.Fatalf("train order differs at %d across runs with identical seed", i)
		}
	}
}

func TestToRowsRejectsLengthMismatch(t *testing.T) {
	if _, err := ToRows([][]float64{{1, 2}}, records(2)); err == nil {
		t.Fatal("expected error on length mismatch between X and records")
	}
}

func TestToRowsPreservesLabelAndScenario(t *testing.T) {
	recs := []model.DuelRecord{{Winner: 1, Scenario: model.ScenarioBestMove}}
	rows, err := ToRows([][]float64{{0.5, 1.5}}, recs)
	if err != nil {
		t.Fatalf("ToRows: %v", err)
	}
	if rows[0].Label != 1 || rows[0].Scenario != "best_move" {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}
