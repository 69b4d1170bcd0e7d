// Package dataset builds the train/test split the trainer consumes from a
// scenario expansion, and persists it as parquet partitions so a training
// run can be replayed without re-running the expander (spec.md §4.5
// build_dataset, grounded on the parquet read/write pattern used by the
// go-cs-metrics demo-ingestion pipeline and the logreg trainer's parquet
// reader in the example pack).
package dataset

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/letsgopredict/battlepredict/internal/model"
)

// Row is one persisted training example: the feature vector plus its label
// and provenance (scenario regime), the unit stored in each parquet
// partition file.
type Row struct {
	Features []float64 `parquet:"name=features, type=FLOAT64, repetitiontype=REPEATED"`
	Label    int32      `parquet:"name=label, type=INT32"`
	Scenario string     `parquet:"name=scenario, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// Split is a stratified 80/20 train/test partition of expanded duel records,
// split deterministically under a fixed seed (spec.md §4.5, §5 ordering law).
type Split struct {
	Train []model.DuelRecord
	Test  []model.DuelRecord
}

// StratifiedSplit partitions records 80/20 by the Winner label, shuffling
// within each label bucket under a seed derived from randomSeed so the same
// seed and the same input order always yield the same partition.
func StratifiedSplit(records []model.DuelRecord, randomSeed int64, testFraction float64) Split {
	if testFraction <= 0 || testFraction >= 1 {
		testFraction = 0.2
	}

	byLabel := map[int][]model.DuelRecord{}
	for _, r := range records {
		byLabel[r.Winner] = append(byLabel[r.Winner], r)
	}

	labels := make([]int, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	var split Split
	for _, label := range labels {
		bucket := byLabel[label]
		rng := rand.New(rand.NewSource(randomSeed + int64(label)))
		perm := rng.Perm(len(bucket))

		testN := int(float64(len(bucket)) * testFraction)
		for i, idx := range perm {
			if i < testN {
				split.Test = append(split.Test, bucket[idx])
			} else {
				split.Train = append(split.Train, bucket[idx])
			}
		}
	}
	return split
}

// ToRows converts feature matrices and labels into persistable Rows. X and
// records must be the same length and order (the label and scenario come
// from records, the numeric payload from X).
func ToRows(x [][]float64, records []model.DuelRecord) ([]Row, error) {
	if len(x) != len(records) {
		return nil, fmt.Errorf("dataset: feature matrix has %d rows but %d records", len(x), len(records))
	}
	rows := make([]Row, len(x))
	for i := range x {
		rows[i] = Row{
			Features: append([]float64(nil), x[i]...),
			Label:    int32(records[i].Winner),
			Scenario: string(records[i].Scenario),
		}
	}
	return rows, nil
}
