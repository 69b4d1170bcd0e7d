package train

import "sort"

// ConfusionMatrix counts predictions at a 0.5 decision threshold.
type ConfusionMatrix struct {
	TruePositive  int
	TrueNegative  int
	FalsePositive int
	FalseNegative int
}

// Metrics is the result of evaluate(), persisted into Metadata.Metrics and
// Metadata.FeatureImportances for the registry (spec.md §4.5, §4.6).
type Metrics struct {
	TrainAccuracy float64
	TestAccuracy  float64
	Precision     float64
	Recall        float64
	F1            float64
	ROCAUC        float64
	OverfitGap    float64 // TrainAccuracy - TestAccuracy
	Confusion     ConfusionMatrix
	// FeatureImportance maps column index to its share of the splits made
	// on that column across every tree, summing to 1 (all zero if no tree
	// splits).
	FeatureImportance []float64
}

// Evaluate scores a fitted model against a labelled split, reporting every
// metric spec.md §4.5 names.
func Evaluate(m *Model, xTrain [][]float64, yTrain []float64, xTest [][]float64, yTest []float64) Metrics {
	trainProbs := m.PredictProbaBatch(xTrain)
	testProbs := m.PredictProbaBatch(xTest)

	cm := confusionMatrix(yTest, testProbs, 0.5)
	precision, recall, f1 := prf1(cm)

	return Metrics{
		TrainAccuracy:     accuracy(yTrain, trainProbs, 0.5),
		TestAccuracy:      accuracy(yTest, testProbs, 0.5),
		Precision:         precision,
		Recall:            recall,
		F1:                f1,
		ROCAUC:            rocAUC(yTest, testProbs),
		OverfitGap:        accuracy(yTrain, trainProbs, 0.5) - accuracy(yTest, testProbs, 0.5),
		Confusion:         cm,
		FeatureImportance: featureImportance(m),
	}
}

func accuracy(y, probs []float64, threshold float64) float64 {
	if len(y) == 0 {
		return 0
	}
	correct := 0
	for i := range y {
		pred := 0.0
		if probs[i] >= threshold {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y))
}

func confusionMatrix(y, probs []float64, threshold float64) ConfusionMatrix {
	var cm ConfusionMatrix
	for i := range y {
		pred := probs[i] >= threshold
		actual := y[i] == 1
		switch {
		case pred && actual:
			cm.TruePositive++
		case !pred && !actual:
			cm.TrueNegative++
		case pred && !actual:
			cm.FalsePositive++
		case !pred && actual:
			cm.FalseNegative++
		}
	}
	return cm
}

func prf1(cm ConfusionMatrix) (precision, recall, f1 float64) {
	if cm.TruePositive+cm.FalsePositive > 0 {
		precision = float64(cm.TruePositive) / float64(cm.TruePositive+cm.FalsePositive)
	}
	if cm.TruePositive+cm.FalseNegative > 0 {
		recall = float64(cm.TruePositive) / float64(cm.TruePositive+cm.FalseNegative)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return
}

// featureImportance counts each tree's splits per split feature, then
// normalises the counts to sum to 1.
func featureImportance(m *Model) []float64 {
	if m.NumFeatures == 0 {
		return nil
	}
	gain := make([]float64, m.NumFeatures)
	for _, t := range m.Trees {
		accumulateGain(t.root, gain)
	}
	total := 0.0
	for _, g := range gain {
		total += g
	}
	if total == 0 {
		return gain
	}
	out := make([]float64, len(gain))
	for i, g := range gain {
		out[i] = g / total
	}
	return out
}

func accumulateGain(n *node, gain []float64) {
	if n == nil || n.isLeaf {
		return
	}
	gain[n.feature] += 1 // split-count proxy; exact gain is not retained per-node to keep node small
	accumulateGain(n.left, gain)
	accumulateGain(n.right, gain)
}

// TopKFeatureImportance returns the k highest importances keyed by column
// name, for Metadata.FeatureImportances (spec.md §4.5). The result is a map,
// so it carries no ordering.
func TopKFeatureImportance(importance []float64, columnNames []string, k int) map[string]float64 {
	type entry struct {
		name  string
		value float64
	}
	entries := make([]entry, len(importance))
	for i, v := range importance {
		name := ""
		if i < len(columnNames) {
			name = columnNames[i]
		}
		entries[i] = entry{name: name, value: v}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].value > entries[j].value })
	if k > len(entries) {
		k = len(entries)
	}
	out := make(map[string]float64, k)
	for _, e := range entries[:k] {
		out[e.name] = e.value
	}
	return out
}
