// Command train builds a dataset from the current knowledge base, fits a
// gradient-boosted classifier, evaluates it, and registers the resulting
// bundle (spec.md §4.5, §4.6). It does not promote automatically; run
// cmd/promote to apply the acceptance contract.
package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/letsgopredict/battlepredict/internal/config"
	"github.com/letsgopredict/battlepredict/internal/dataset"
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

	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	k, err := kb.Load(postgres.NewKBRepo(db))
	if err != nil {
		log.Fatal().Err(err).Msg("knowledge base load failed")
	}
	log.Info().Int("species", k.NumSpecies()).Int("moves", k.NumMoves()).Msg("knowledge base loaded")

	ds, err := train.BuildDataset(k, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build_dataset failed")
	}
	log.Info().Int("train_rows", len(ds.XTrain)).Int("test_rows", len(ds.XTest)).Msg("dataset built")

	xTrain, yTrain, xTest, yTest, err := persistAndReloadPartitions(cfg.DatasetDir, ds)
	if err != nil {
		log.Fatal().Err(err).Msg("dataset partition round-trip failed")
	}
	log.Info().Str("dataset_dir", cfg.DatasetDir).Msg("dataset partitions written and reloaded")

	xFit, yFit, xVal, yVal := train.CarveValidation(xTrain, yTrain, cfg.RandomSeed)
	params := train.DefaultParams()
	m := train.Fit(params, xFit, yFit, xVal, yVal)

	metrics := train.Evaluate(m, xTrain, yTrain, xTest, yTest)
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
		Description:        "gradient-boosted classifier, default hyperparameters",
		ColumnOrder:        features.ColumnNames(),
		Hyperparameters:    hyperparamMap(params),
		Metrics:            metricMap(metrics),
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
	log.Info().Int("version", version).Msg("model registered in stage=none")
}

func hyperparamMap(p train.Params) map[string]float64 {
	return map[string]float64{
		"num_rounds":        float64(p.NumRounds),
		"learning_rate":     p.LearningRate,
		"max_depth":         float64(p.MaxDepth),
		"min_leaf_size":     float64(p.MinLeafSize),
		"l2_reg":            p.L2Reg,
		"max_bins":          float64(p.MaxBins),
		"early_stop_rounds": float64(p.EarlyStopRounds),
	}
}

func metricMap(m train.Metrics) map[string]float64 {
	return map[string]float64{
		"train_accuracy": m.TrainAccuracy,
		"test_accuracy":  m.TestAccuracy,
		"precision":      m.Precision,
		"recall":         m.Recall,
		"f1":             m.F1,
		"roc_auc":        m.ROCAUC,
		"overfit_gap":    m.OverfitGap,
	}
}

// persistAndReloadPartitions batches ds's scaled feature vectors into
// parquet partitions (spec.md §3, §2 component 5) and reads them straight
// back, so the matrices Fit/Evaluate train on are the ones that round-trip
// through the on-disk dataset artifact rather than only the in-memory split.
// A later run can replay these partitions without re-running the scenario
// expander.
func persistAndReloadPartitions(dir string, ds *train.Dataset) (xTrain [][]float64, yTrain []float64, xTest [][]float64, yTest []float64, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, nil, nil, err
	}

	trainRows, err := dataset.ToRows(ds.XTrain, ds.RecordsTrain)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	testRows, err := dataset.ToRows(ds.XTest, ds.RecordsTest)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	trainPath := filepath.Join(dir, modelName+"_train.parquet")
	testPath := filepath.Join(dir, modelName+"_test.parquet")
	if err := dataset.WritePartition(trainPath, trainRows); err != nil {
		return nil, nil, nil, nil, err
	}
	if err := dataset.WritePartition(testPath, testRows); err != nil {
		return nil, nil, nil, nil, err
	}

	reloadedTrain, err := dataset.ReadPartition(trainPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	reloadedTest, err := dataset.ReadPartition(testPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	xTrain, yTrain = rowsToMatrix(reloadedTrain)
	xTest, yTest = rowsToMatrix(reloadedTest)
	return xTrain, yTrain, xTest, yTest, nil
}

func rowsToMatrix(rows []dataset.Row) ([][]float64, []float64) {
	x := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, r := range rows {
		x[i] = r.Features
		y[i] = float64(r.Label)
	}
	return x, y
}
