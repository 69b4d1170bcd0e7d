// Command tune runs stratified K-fold cross-validation over one of the two
// canonical hyperparameter grids (spec.md §4.5 tune, §6 grid_type) and fits
// a final model with the winning parameters before registering it, the same
// way cmd/train registers its default-parameter model.
package main

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/letsgopredict/battlepredict/internal/config"
	"github.com/letsgopredict/battlepredict/internal/features"
	"github.com/letsgopredict/battlepredict/internal/kb"
	"github.com/letsgopredict/battlepredict/internal/logger"
	"github.com/letsgopredict/battlepredict/internal/model"
	"github.com/letsgopredict/battlepredict/internal/registry"
	"github.com/letsgopredict/battlepredict/internal/repository/postgres"
	"github.com/letsgopredict/battlepredict/internal/train"
)

const modelName = "battlepredict"

func main() {
	logger.Init()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if cfg.GridType == config.GridNone {
		log.Fatal().Msg("cmd/tune requires GRID_TYPE=fast or GRID_TYPE=extended")
	}

	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	k, err := kb.Load(postgres.NewKBRepo(db))
	if err != nil {
		log.Fatal().Err(err).Msg("knowledge base load failed")
	}

	ds, err := train.BuildDataset(k, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build_dataset failed")
	}
	log.Info().Int("train_rows", len(ds.XTrain)).Int("test_rows", len(ds.XTest)).Msg("dataset built")

	grid := train.Grid(train.GridType(cfg.GridType))
	log.Info().Int("candidates", len(grid)).Int("cv_folds", cfg.CVFolds).Str("grid_type", string(cfg.GridType)).Msg("starting cross-validation")

	bestParams, results, err := train.Tune(ds.XTrain, ds.YTrain, grid, cfg.CVFolds, cfg.RandomSeed)
	if err != nil {
		log.Fatal().Err(err).Msg("tune failed")
	}
	for _, r := range results {
		log.Debug().Float64("auc_mean", r.AUCMean).Int("max_depth", r.Params.MaxDepth).Float64("learning_rate", r.Params.LearningRate).Msg("cv candidate scored")
	}
	log.Info().Float64("learning_rate", bestParams.LearningRate).Int("max_depth", bestParams.MaxDepth).Msg("best params selected")

	xFit, yFit, xVal, yVal := train.CarveValidation(ds.XTrain, ds.YTrain, cfg.RandomSeed)
	m := train.Fit(bestParams, xFit, yFit, xVal, yVal)
	metrics := train.Evaluate(m, ds.XTrain, ds.YTrain, ds.XTest, ds.YTest)
	log.Info().
		Float64("test_accuracy", metrics.TestAccuracy).
		Float64("roc_auc", metrics.ROCAUC).
		Float64("overfit_gap", metrics.OverfitGap).
		Msg("evaluation complete")

	reg, err := registry.Open(cfg.ModelRegistryDir, modelName)
	if err != nil {
		log.Fatal().Err(err).Msg("registry open failed")
	}

	modelBytes, err := m.MarshalBinary()
	if err != nil {
		log.Fatal().Err(err).Msg("model serialization failed")
	}
	scalerBytes, err := ds.Pipeline.Bundle().Marshal()
	if err != nil {
		log.Fatal().Err(err).Msg("scaler serialization failed")
	}

	meta := model.Metadata{
		Description: "gradient-boosted classifier, tuned via " + string(cfg.GridType) + " grid",
		ColumnOrder: features.ColumnNames(),
		Hyperparameters: map[string]float64{
			"num_rounds":        float64(bestParams.NumRounds),
			"learning_rate":     bestParams.LearningRate,
			"max_depth":         float64(bestParams.MaxDepth),
			"min_leaf_size":     float64(bestParams.MinLeafSize),
			"l2_reg":            bestParams.L2Reg,
			"max_bins":          float64(bestParams.MaxBins),
			"early_stop_rounds": float64(bestParams.EarlyStopRounds),
		},
		Metrics: map[string]float64{
			"train_accuracy": metrics.TrainAccuracy,
			"test_accuracy":  metrics.TestAccuracy,
			"precision":      metrics.Precision,
			"recall":         metrics.Recall,
			"f1":             metrics.F1,
			"roc_auc":        metrics.ROCAUC,
			"overfit_gap":    metrics.OverfitGap,
			"cv_auc_mean":    bestCVAUC(results),
		},
		FeatureImportances: train.TopKFeatureImportance(metrics.FeatureImportance, features.ColumnNames(), 10),
		ScenarioConfig: model.ScenarioConfig{
			ScenarioType:              string(cfg.ScenarioType),
			RandomSamplesPerMatchup:   cfg.RandomSamplesPerMatchup,
			MaxCombinationsPerMatchup: cfg.MaxCombinationsPerMatchup,
			RandomSeed:                cfg.RandomSeed,
		},
		TrainingSeed: cfg.RandomSeed,
		CreatedAt:    time.Now().UTC(),
	}

	version, err := reg.Register(registry.Bundle{ModelBytes: modelBytes, ScalersBytes: scalerBytes, Metadata: meta})
	if err != nil {
		log.Fatal().Err(err).Msg("registry register failed")
	}
	log.Info().Int("version", version).Msg("tuned model registered in stage=none")
}

func bestCVAUC(results []train.CVResult) float64 {
	best := 0.0
	for _, r := range results {
		if r.AUCMean > best {
			best = r.AUCMean
		}
	}
	return best
}
