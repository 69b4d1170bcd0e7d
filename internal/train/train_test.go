package train

import (
	"math/rand"
	"testing"
)

// linearlySeparableData generates a toy dataset where label = 1 iff the sum
// of features exceeds a threshold, so a correctly-working booster should
// reach high accuracy well within NumRounds.
func linearlySeparableData(n, numFeatures int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		row := make([]float64, numFeatures)
		sum := 0.0
		for f := range row {
			row[f] = rng.Float64()*2 - 1
			sum += row[f]
		}
		x[i] = row
		if sum > 0 {
			y[i] = 1
		}
	}
	return x, y
}

func TestFitConvergesOnLinearlySeparableData(t *testing.T) {
	x, y := linearlySeparableData(400, 5, 1)
	xTrain, yTrain := x[:300], y[:300]
	xVal, yVal := x[300:], y[300:]

	params := DefaultParams()
	params.NumRounds = 50
	m := Fit(params, xTrain, yTrain, xVal, yVal)

	acc := accuracy(yVal, m.PredictProbaBatch(xVal), 0.5)
	if acc < 0.85 {
		t.Fatalf("expected >=0.85 validation accuracy on separable data, got %v", acc)
	}
}

func TestFitHandlesEmptyInput(t *testing.T) {
	m := Fit(DefaultParams(), nil, nil, nil, nil)
	if len(m.Trees) != 0 {
		t.Fatalf("expected no trees for empty training set, got %d", len(m.Trees))
	}
}

func TestEarlyStoppingTrimsTrees(t *testing.T) {
	x, y := linearlySeparableData(200, 4, 2)
	xTrain, yTrain := x[:150], y[:150]
	xVal, yVal := x[150:], y[150:]

	params := DefaultParams()
	params.NumRounds = 500
	params.EarlyStopRounds = 5
	m := Fit(params, xTrain, yTrain, xVal, yVal)

	if len(m.Trees) >= params.NumRounds {
		t.Fatalf("expected early stopping to trim rounds well below %d, got %d", params.NumRounds, len(m.Trees))
	}
}

func TestGridSizesRespectSpecCaps(t *testing.T) {
	if len(Grid(GridFast)) > 12 {
		t.Fatalf("fast grid must have <=12 combinations, got %d", len(Grid(GridFast)))
	}
	if len(Grid(GridExtended)) > 18 {
		t.Fatalf("extended grid must have <=18 combinations, got %d", len(Grid(GridExtended)))
	}
}

func TestTuneSelectsHighAUCParams(t *testing.T) {
	x, y := linearlySeparableData(200, 4, 3)
	best, results, err := Tune(x, y, Grid(GridFast), 3, 5)
	if err != nil {
		t.Fatalf("Tune: %v", err)
	}
	if len(results) != len(Grid(GridFast)) {
		t.Fatalf("expected one CVResult per grid candidate, got %d", len(results))
	}
	if best.MaxDepth == 0 {
		t.Fatal("expected Tune to return a valid Params")
	}
	top := results[0]
	for _, r := range results[1:] {
		if r.AUCMean > top.AUCMean {
			top = r
		}
	}
	if best != top.Params {
		t.Fatalf("expected Tune to return the highest-AUC candidate %+v (AUC %v), got %+v", top.Params, top.AUCMean, best)
	}
}

func TestEvaluateReportsAllMetrics(t *testing.T) {
	x, y := linearlySeparableData(300, 5, 4)
	xTrain, yTrain := x[:200], y[:200]
	xTest, yTest := x[200:250], y[200:250]
	xVal, yVal := x[250:], y[250:]

	m := Fit(DefaultParams(), xTrain, yTrain, xVal, yVal)
	metrics := Evaluate(m, xTrain, yTrain, xTest, yTest)

	if metrics.ROCAUC < 0.5 {
		t.Fatalf("expected ROC-AUC >= 0.5 on separable data, got %v", metrics.ROCAUC)
	}
	total := metrics.Confusion.TruePositive + metrics.Confusion.TrueNegative +
		metrics.Confusion.FalsePositive + metrics.Confusion.FalseNegative
	if total != len(yTest) {
		t.Fatalf("confusion matrix total %d does not match test set size %d", total, len(yTest))
	}
}

func TestSafeParallelismIsAtLeastOne(t *testing.T) {
	if safeParallelism(false) < 1 || safeParallelism(true) < 1 {
		t.Fatal("safe parallelism cap must never be zero")
	}
}
