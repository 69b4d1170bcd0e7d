package features

import (
	"encoding/json"
	"fmt"

	"github.com/letsgopredict/battlepredict/internal/model"
	"github.com/letsgopredict/battlepredict/pkg/duel"
	"github.com/letsgopredict/battlepredict/pkg/typechart"
)

// Bundle is the persisted state of a fitted pipeline: the two scalers, each
// with the column indices it was fit over, written as scalers.pkl alongside
// a registry version (spec.md §4.6). The column names go into metadata.json
// separately, via ColumnNames.
type Bundle struct {
	Stage1 StandardScaler `json:"stage1"`
	Stage2 StandardScaler `json:"stage2"`
}

// Marshal serializes the bundle for scalers.pkl.
func (b Bundle) Marshal() ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("features: marshal scaler bundle: %w", err)
	}
	return data, nil
}

// UnmarshalBundle restores a Bundle persisted by Marshal.
func UnmarshalBundle(data []byte) (Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return Bundle{}, fmt.Errorf("features: unmarshal scaler bundle: %w", err)
	}
	return b, nil
}

// Pipeline builds feature rows from DuelRecords and applies the two-stage
// scaler. A zero-value Pipeline is usable for Fit; a Pipeline loaded from a
// persisted Bundle is usable for Transform only (spec.md §4.4: "fitting is
// only permitted on training data").
type Pipeline struct {
	bundle Bundle
	fitted bool
}

// FromBundle restores a Pipeline from a persisted Bundle, for inference or
// for transforming a held-out test split.
func FromBundle(b Bundle) *Pipeline {
	return &Pipeline{bundle: b, fitted: true}
}

// Bundle returns the pipeline's current scaler state, for persistence.
func (p *Pipeline) Bundle() Bundle {
	return p.bundle
}

// rawRow builds the unscaled vector for one record: raw stats, one-hot
// types, raw move scalars/one-hots. Derived columns are left zero; they are
// filled in after stage 1 runs, since they are computed from the
// stage-1-scaled stats (spec.md §4.4 stage 2 description).
func rawRow(r model.DuelRecord) []float64 {
	row := make([]float64, NumColumns)

	a, b := r.A.Species, r.B.Species
	stats := func(s model.Stats) []float64 { return []float64{float64(s.HP), float64(s.Atk), float64(s.Def), float64(s.SpAtk), float64(s.SpDef), float64(s.Spe)} }
	copy(row[idxRawStart:idxRawStart+6], stats(a.Stats))
	copy(row[idxRawStart+6:idxRawStart+12], stats(b.Stats))

	setTypeOneHot(row, idxTypeStart+0*typechart.NumTypes, a.Type1)
	setTypeOneHot(row, idxTypeStart+1*typechart.NumTypes, a.Type2)
	setTypeOneHot(row, idxTypeStart+2*typechart.NumTypes, b.Type1)
	setTypeOneHot(row, idxTypeStart+3*typechart.NumTypes, b.Type2)

	setMoveBlock(row, idxMoveAStart, r.A.Move)
	setMoveBlock(row, idxMoveBStart, r.B.Move)

	return row
}

func setTypeOneHot(row []float64, base int, typeID int) {
	if typeID < 0 || typeID >= typechart.NumTypes {
		return // absent secondary type: all-zero vector
	}
	row[base+typeID] = 1
}

func setMoveBlock(row []float64, base int, mv model.Move) {
	row[base+moveOffPower] = float64(mv.Power)
	row[base+moveOffAccuracy] = float64(mv.EffectiveAccuracy())
	row[base+moveOffPriority] = float64(mv.Priority)

	catIdx := -1
	switch mv.Category {
	case model.Physical:
		catIdx = 0
	case model.Special:
		catIdx = 1
	case model.Status:
		catIdx = 2
	}
	if catIdx >= 0 {
		row[base+moveOffCategory+catIdx] = 1
	}
	if mv.Type >= 0 && mv.Type < typechart.NumTypes {
		row[base+moveOffType+mv.Type] = 1
	}
}

// fillDerived computes the six derived columns from the stage-1-scaled row
// (for stat_ratio, hp_diff, speed_diff) plus raw domain quantities
// (effective power, type advantage) that are independent of the stat
// scaler.
func fillDerived(row []float64, r model.DuelRecord) {
	a, b := r.A.Species, r.B.Species

	aHP, bHP := row[idxRawStart+0], row[idxRawStart+6]
	aSpe, bSpe := row[idxRawStart+5], row[idxRawStart+11]

	statSumA, statSumB := 0.0, 0.0
	for i := 0; i < 6; i++ {
		statSumA += row[idxRawStart+i]
		statSumB += row[idxRawStart+6+i]
	}
	statRatio := 0.0
	if statSumB != 0 {
		statRatio = statSumA / statSumB
	}

	epA := duel.EffectivePower(a, r.A.Move, b)
	epB := duel.EffectivePower(b, r.B.Move, a)
	typeAdvDiff := typechart.Multiplier(r.A.Move.Type, b.Type1, b.Type2) - typechart.Multiplier(r.B.Move.Type, a.Type1, a.Type2)

	row[idxDerivedStart+derivedStatRatio] = statRatio
	row[idxDerivedStart+derivedEffectivePowerA] = epA
	row[idxDerivedStart+derivedEffectivePowerB] = epB
	row[idxDerivedStart+derivedHPDiff] = aHP - bHP
	row[idxDerivedStart+derivedSpeedDiff] = aSpe - bSpe
	row[idxDerivedStart+derivedTypeAdvantageDiff] = typeAdvDiff
}

// Fit fits both scalers on the given training records and returns the
// fully-transformed design matrix for them (so the caller does not need a
// separate Transform call to get X_train).
func (p *Pipeline) Fit(records []model.DuelRecord) [][]float64 {
	rows := make([][]float64, len(records))
	for i, r := range records {
		rows[i] = rawRow(r)
	}

	p.bundle.Stage1.Fit(rows, stage1Columns())
	for _, row := range rows {
		_ = p.bundle.Stage1.Transform(row)
	}
	for i, r := range records {
		fillDerived(rows[i], r)
	}
	p.bundle.Stage2.Fit(rows, stage2Columns())
	for _, row := range rows {
		_ = p.bundle.Stage2.Transform(row)
	}

	p.fitted = true
	return rows
}

// Transform applies the already-fitted (or loaded) scalers to records. Used
// both for the held-out test split at training time and for every inference
// request.
func (p *Pipeline) Transform(records []model.DuelRecord) ([][]float64, error) {
	rows := make([][]float64, len(records))
	for i, r := range records {
		row := rawRow(r)
		if err := p.bundle.Stage1.Transform(row); err != nil {
			return nil, err
		}
		fillDerived(row, r)
		if err := p.bundle.Stage2.Transform(row); err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return rows, nil
}

// TransformOne is a convenience wrapper around Transform for a single
// predict/best_move request.
func (p *Pipeline) TransformOne(r model.DuelRecord) ([]float64, error) {
	rows, err := p.Transform([]model.DuelRecord{r})
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}
