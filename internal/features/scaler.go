package features

import (
	"fmt"

	"github.com/letsgopredict/battlepredict/internal/apperrors"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler is a zero-mean unit-variance scaler fit over a fixed subset
// of columns in a design matrix, in the manner of sklearn's StandardScaler
// (the behaviour spec.md §4.4 describes), except that the standard deviation
// is the sample (n-1) estimate. Columns with zero variance are centred but
// left unscaled (divide-by-zero guard) rather than producing NaN/Inf.
type StandardScaler struct {
	Columns []int     `json:"columns"`
	Mean    []float64 `json:"mean"`
	Std     []float64 `json:"std"`
}

// Fit computes per-column mean/stddev over rows (each of length NumColumns),
// restricted to s.Columns, using gonum's stat.MeanStdDev (sample standard
// deviation).
func (s *StandardScaler) Fit(rows [][]float64, columns []int) {
	s.Columns = append([]int(nil), columns...)
	s.Mean = make([]float64, len(columns))
	s.Std = make([]float64, len(columns))

	col := make([]float64, len(rows))
	for ci, c := range columns {
		for ri, row := range rows {
			col[ri] = row[c]
		}
		mean, std := stat.MeanStdDev(col, nil)
		s.Mean[ci] = mean
		s.Std[ci] = std
	}
}

// Transform scales the given columns of row in place.
func (s *StandardScaler) Transform(row []float64) error {
	if len(s.Columns) != len(s.Mean) || len(s.Columns) != len(s.Std) {
		return apperrors.New(apperrors.KindSchemaMismatch, "scaler not fit", nil)
	}
	for i, c := range s.Columns {
		if c < 0 || c >= len(row) {
			return apperrors.New(apperrors.KindSchemaMismatch,
				fmt.Sprintf("scaler column %d out of range for row of length %d", c, len(row)), nil)
		}
		std := s.Std[i]
		if std == 0 {
			row[c] -= s.Mean[i]
			continue
		}
		row[c] = (row[c] - s.Mean[i]) / std
	}
	return nil
}

// TransformBatch scales every row in place.
func (s *StandardScaler) TransformBatch(rows [][]float64) error {
	for _, row := range rows {
		if err := s.Transform(row); err != nil {
			return err
		}
	}
	return nil
}
