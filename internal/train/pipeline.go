package train

import (
	"math/rand"
	"sort"

	"github.com/letsgopredict/battlepredict/internal/config"
	"github.com/letsgopredict/battlepredict/internal/dataset"
	"github.com/letsgopredict/battlepredict/internal/features"
	"github.com/letsgopredict/battlepredict/internal/kb"
	"github.com/letsgopredict/battlepredict/internal/model"
	"github.com/letsgopredict/battlepredict/internal/scenario"
)

// Dataset bundles everything build_dataset produces: the scaled design
// matrices, labels, and the fitted feature pipeline (persisted into the
// registry alongside the model, spec.md §4.6).
type Dataset struct {
	XTrain   [][]float64
	YTrain   []float64
	XTest    [][]float64
	YTest    []float64
	Pipeline *features.Pipeline

	// RecordsTrain and RecordsTest carry the duel records XTrain/XTest were
	// derived from, so cmd/train can batch the scaled vectors into parquet
	// partitions alongside their label and scenario provenance (spec.md §3,
	// §2 component 5: FeatureVectors "batched into parquet partitions").
	RecordsTrain []model.DuelRecord
	RecordsTest  []model.DuelRecord
}

// BuildDataset runs the scenario expander over k under cfg, splits the
// result 80/20 stratified on winner, and fits the feature pipeline on the
// training split only (spec.md §4.4, §4.5 build_dataset).
func BuildDataset(k *kb.KB, cfg *config.Config) (*Dataset, error) {
	records, err := expandAll(k, cfg)
	if err != nil {
		return nil, err
	}

	split := dataset.StratifiedSplit(records, cfg.RandomSeed, 0.2)

	pipeline := &features.Pipeline{}
	xTrain := pipeline.Fit(split.Train)
	xTest, err := pipeline.Transform(split.Test)
	if err != nil {
		return nil, err
	}

	return &Dataset{
		XTrain:       xTrain,
		YTrain:       labels(split.Train),
		XTest:        xTest,
		YTest:        labels(split.Test),
		Pipeline:     pipeline,
		RecordsTrain: split.Train,
		RecordsTest:  split.Test,
	}, nil
}

func labels(records []model.DuelRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = float64(r.Winner)
	}
	return out
}

// expandAll dispatches to the scenario regime(s) cfg.ScenarioType selects.
// config.ScenarioAll runs all three regimes and concatenates them, since it
// is a composite of the single regimes the expander supports natively.
func expandAll(k *kb.KB, cfg *config.Config) ([]model.DuelRecord, error) {
	regimes := []scenario.Regime{scenario.Regime(cfg.ScenarioType)}
	if config.ScenarioType(cfg.ScenarioType) == config.ScenarioAll {
		regimes = []scenario.Regime{scenario.BestMove, scenario.RandomMove, scenario.AllCombinations}
	}

	var out []model.DuelRecord
	for _, regime := range regimes {
		e := scenario.New(k, scenario.FromAppConfig(cfg, regime))
		if err := e.Expand(func(r model.DuelRecord) bool {
			out = append(out, r)
			return true
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CarveValidation splits off a held-out slice of the training set for early
// stopping, stratified on label (spec.md §4.5: "a held-out 20% slice of the
// training set"). Used by cmd/train before calling Fit.
func CarveValidation(x [][]float64, y []float64, seed int64) (xFit [][]float64, yFit []float64, xVal [][]float64, yVal []float64) {
	byLabel := map[float64][]int{}
	for i, v := range y {
		byLabel[v] = append(byLabel[v], i)
	}
	labelsSeen := make([]float64, 0, len(byLabel))
	for label := range byLabel {
		labelsSeen = append(labelsSeen, label)
	}
	sort.Float64s(labelsSeen)

	var fitIdx, valIdx []int
	for _, label := range labelsSeen {
		idx := byLabel[label]
		n := len(idx)
		valN := n / 5
		rng := rand.New(rand.NewSource(seed + int64(label*7)))
		perm := rng.Perm(n)
		for i, p := range perm {
			if i < valN {
				valIdx = append(valIdx, idx[p])
			} else {
				fitIdx = append(fitIdx, idx[p])
			}
		}
	}

	xFit, yFit = subset(x, y, fitIdx)
	xVal, yVal = subset(x, y, valIdx)
	return
}
