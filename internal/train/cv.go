package train

import (
	"context"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// GridType selects one of the two canonical hyperparameter grids spec.md
// §4.5 names.
type GridType string

const (
	GridFast     GridType = "fast"
	GridExtended GridType = "extended"
)

// Grid returns the candidate Params for a GridType, capped at the sizes
// spec.md §4.5 calls out (fast <= 12, extended <= 18).
func Grid(g GridType) []Params {
	base := DefaultParams()
	var depths []int
	var rates []float64
	switch g {
	case GridExtended:
		depths = []int{3, 4, 5, 6}
		rates = []float64{0.3, 0.1, 0.05, 0.02, 0.01}
	default: // fast
		depths = []int{3, 4, 5}
		rates = []float64{0.2, 0.1, 0.05, 0.02}
	}

	var grid []Params
	maxCombos := 12
	if g == GridExtended {
		maxCombos = 18
	}
	for _, d := range depths {
		for _, r := range rates {
			if len(grid) >= maxCombos {
				return grid
			}
			p := base
			p.MaxDepth = d
			p.LearningRate = r
			grid = append(grid, p)
		}
	}
	return grid
}

// fold is one stratified cross-validation partition.
type fold struct {
	trainIdx []int
	valIdx   []int
}

// stratifiedFolds assigns every row to exactly one of k folds, stratified on
// label, deterministically under seed.
func stratifiedFolds(y []float64, k int, seed int64) []fold {
	byLabel := map[float64][]int{}
	for i, v := range y {
		byLabel[v] = append(byLabel[v], i)
	}
	labels := make([]float64, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Float64s(labels)

	assign := make([][]int, k)
	for _, label := range labels {
		idx := byLabel[label]
		rng := rand.New(rand.NewSource(seed + int64(label)*1000))
		perm := rng.Perm(len(idx))
		for i, p := range perm {
			fIdx := i % k
			assign[fIdx] = append(assign[fIdx], idx[p])
		}
	}

	folds := make([]fold, k)
	for i := 0; i < k; i++ {
		folds[i].valIdx = assign[i]
		for j := 0; j < k; j++ {
			if j == i {
				continue
			}
			folds[i].trainIdx = append(folds[i].trainIdx, assign[j]...)
		}
	}
	return folds
}

func subset(x [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	sx := make([][]float64, len(idx))
	sy := make([]float64, len(idx))
	for i, j := range idx {
		sx[i] = x[j]
		sy[i] = y[j]
	}
	return sx, sy
}

// CVResult is one grid candidate's cross-validated score.
type CVResult struct {
	Params  Params
	AUCMean float64
}

// Tune runs stratified K-fold CV over grid and returns the best Params by
// mean ROC-AUC across folds (spec.md §4.5 tune). return_train_score is not
// computed, matching the spec's cost-reduction note. Grid candidates are
// evaluated in parallel up to the CV-specific safe parallelism cap (spec.md
// §5); the folds of one candidate run one after another.
func Tune(x [][]float64, y []float64, grid []Params, k int, seed int64) (Params, []CVResult, error) {
	if k < 2 {
		k = 3
	}
	folds := stratifiedFolds(y, k, seed)

	results := make([]CVResult, len(grid))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(safeParallelism(true))

	for gi, params := range grid {
		gi, params := gi, params
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			aucs := make([]float64, 0, len(folds))
			for _, f := range folds {
				xTrain, yTrain := subset(x, y, f.trainIdx)
				xVal, yVal := subset(x, y, f.valIdx)
				m := Fit(params, xTrain, yTrain, xVal, yVal)
				probs := m.PredictProbaBatch(xVal)
				aucs = append(aucs, rocAUC(yVal, probs))
			}
			results[gi] = CVResult{Params: params, AUCMean: meanFloat(aucs)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Params{}, nil, err
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.AUCMean > best.AUCMean {
			best = r
		}
	}
	return best.Params, results, nil
}

func meanFloat(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

// rocAUC wraps gonum's ROC curve integration for a binary label vector.
func rocAUC(y, scores []float64) float64 {
	tpr, fpr := rocPoints(y, scores)
	return stat.AUC(fpr, tpr)
}

// rocPoints builds the ROC curve's (fpr, tpr) points by sweeping scores as
// thresholds from highest to lowest, which yields fpr in the ascending order
// gonum's stat.AUC (trapezoidal) requires.
func rocPoints(y, scores []float64) ([]float64, []float64) {
	type pair struct {
		score float64
		label float64
	}
	pairs := make([]pair, len(y))
	for i := range y {
		pairs[i] = pair{scores[i], y[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })

	totalPos, totalNeg := 0.0, 0.0
	for _, p := range pairs {
		if p.label == 1 {
			totalPos++
		} else {
			totalNeg++
		}
	}
	if totalPos == 0 {
		totalPos = 1
	}
	if totalNeg == 0 {
		totalNeg = 1
	}

	fpr := make([]float64, 0, len(pairs)+1)
	tpr := make([]float64, 0, len(pairs)+1)
	tp, fp := 0.0, 0.0
	fpr = append(fpr, 0)
	tpr = append(tpr, 0)
	for _, p := range pairs {
		if p.label == 1 {
			tp++
		} else {
			fp++
		}
		fpr = append(fpr, fp/totalNeg)
		tpr = append(tpr, tp/totalPos)
	}
	return fpr, tpr
}
