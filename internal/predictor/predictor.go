// Package predictor loads a production model bundle and answers predict/
// best_move requests (spec.md §4.7). The model and scalers are immutable
// once loaded and shared by readers without locking; the only mutation
// points are initial load and an explicit reload, both taking the
// process-wide write lock for the duration of the swap (spec.md §5), the
// same pattern the bot's ONNX strategy uses around its loaded session.
package predictor

import (
	"context"
	"fmt"
	"sync"

	"github.com/letsgopredict/battlepredict/internal/apperrors"
	"github.com/letsgopredict/battlepredict/internal/features"
	"github.com/letsgopredict/battlepredict/internal/kb"
	"github.com/letsgopredict/battlepredict/internal/logger"
	"github.com/letsgopredict/battlepredict/internal/model"
	"github.com/letsgopredict/battlepredict/internal/registry"
	"github.com/letsgopredict/battlepredict/internal/train"
)

// loaded is the currently active bundle: a model, its matching feature
// pipeline, and the registry version it came from (0 for the local
// fallback, which has no version).
type loaded struct {
	m        *train.Model
	pipeline *features.Pipeline
	version  int
}

// Predictor answers predict/best_move requests against the currently loaded
// bundle.
type Predictor struct {
	mu sync.RWMutex
	cur *loaded

	reg          *registry.Registry
	localDir     string
	kb           *kb.KB
}

// New constructs a Predictor and performs the initial load, attempting the
// registry's production bundle first and falling back to the local
// filesystem path on failure (spec.md §4.7 fallback policy). Start-up fails
// only if both sources fail.
func New(reg *registry.Registry, localFallbackDir string, k *kb.KB) (*Predictor, error) {
	p := &Predictor{reg: reg, localDir: localFallbackDir, kb: k}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-runs the fallback policy and swaps in the new bundle under the
// write lock. Safe to call concurrently with in-flight Predict/BestMove
// calls, which continue to observe the previously loaded bundle until the
// swap completes.
func (p *Predictor) Reload() error {
	next, err := p.loadFromRegistryOrFallback()
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.cur = next
	p.mu.Unlock()
	return nil
}

// loadFromRegistryOrFallback implements spec.md §4.7's fallback policy and
// §3 invariant (iv)/§7 SchemaMismatch: a bundle whose Metadata.ColumnOrder
// disagrees with the pipeline's current column schema is rejected rather
// than loaded, and the loader falls through to the next source (registry ->
// local filesystem) instead of serving a bundle that would silently produce
// garbage predictions.
func (p *Predictor) loadFromRegistryOrFallback() (*loaded, error) {
	var regErr error
	if p.reg != nil {
		b, version, err := p.reg.Load(model.StageProduction)
		switch {
		case err != nil:
			regErr = err
		default:
			if scErr := features.CheckColumnOrder(b.Metadata.ColumnOrder); scErr != nil {
				regErr = scErr
			} else if m, mErr := train.UnmarshalModel(b.ModelBytes); mErr != nil {
				regErr = mErr
			} else if bundle, sErr := features.UnmarshalBundle(b.ScalersBytes); sErr != nil {
				regErr = sErr
			} else {
				return &loaded{m: m, pipeline: features.FromBundle(bundle), version: version}, nil
			}
		}
	}

	lb, err := loadLocalFallback(p.localDir)
	if err != nil {
		return nil, apperrors.New(apperrors.KindModelNotAvailable,
			fmt.Sprintf("registry bundle unusable (%v) and local fallback failed", regErr), err)
	}
	if len(lb.metadataColumnOrder) > 0 {
		if scErr := features.CheckColumnOrder(lb.metadataColumnOrder); scErr != nil {
			return nil, apperrors.New(apperrors.KindModelNotAvailable,
				fmt.Sprintf("registry bundle unusable (%v) and local fallback schema also disagrees", regErr), scErr)
		}
	}
	m, err := train.UnmarshalModel(lb.modelBytes)
	if err != nil {
		return nil, apperrors.New(apperrors.KindModelNotAvailable, "local fallback model.bin is corrupt", err)
	}
	bundle, err := features.UnmarshalBundle(lb.scalersBytes)
	if err != nil {
		return nil, apperrors.New(apperrors.KindModelNotAvailable, "local fallback scalers.pkl is corrupt", err)
	}
	return &loaded{m: m, pipeline: features.FromBundle(bundle), version: 0}, nil
}

// ensureRequestID attaches a fresh request id to ctx when the caller hasn't
// already set one, so every Predict/BestMove call carries one end to end
// (spec.md §5: a prediction is "a request" even though it is an in-process
// call, not an HTTP one).
func ensureRequestID(ctx context.Context) context.Context {
	if logger.RequestIDFromContext(ctx) != "" {
		return ctx
	}
	return logger.WithRequestID(ctx, logger.NewRequestID())
}

// snapshot returns the currently loaded bundle under the read lock.
func (p *Predictor) snapshot() (*loaded, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cur == nil {
		return nil, apperrors.New(apperrors.KindModelNotAvailable, "predictor has no loaded bundle", nil)
	}
	return p.cur, nil
}

// ConfidenceBucket classifies a predicted probability per spec.md §4.7.
func ConfidenceBucket(p float64) string {
	switch {
	case p >= 0.4 && p <= 0.6:
		return "low"
	case p >= 0.8 || p <= 0.2:
		return "high"
	default:
		return "medium"
	}
}

// PredictResult is the response shape for predict().
type PredictResult struct {
	Winner           int
	PA               float64
	PB               float64
	ConfidenceBucket string
	ModelVersion     int
}

// Predict resolves species/moves from the KB and scores the matchup
// (spec.md §4.7 predict).
func (p *Predictor) Predict(ctx context.Context, speciesAID, speciesBID, moveAID, moveBID int) (PredictResult, error) {
	ctx = ensureRequestID(ctx)
	log := logger.ForRequest(ctx)
	log.Debug().Int("species_a", speciesAID).Int("species_b", speciesBID).
		Int("move_a", moveAID).Int("move_b", moveBID).Msg("predict")

	cur, err := p.snapshot()
	if err != nil {
		return PredictResult{}, err
	}

	a, err := p.kb.Species(speciesAID)
	if err != nil {
		return PredictResult{}, err
	}
	b, err := p.kb.Species(speciesBID)
	if err != nil {
		return PredictResult{}, err
	}
	moveA, err := p.kb.Move(moveAID)
	if err != nil {
		return PredictResult{}, err
	}
	moveB, err := p.kb.Move(moveBID)
	if err != nil {
		return PredictResult{}, err
	}
	if !a.Knows(moveAID) {
		return PredictResult{}, apperrors.New(apperrors.KindInvalidMove, "species A does not know the requested move", nil)
	}
	if !b.Knows(moveBID) {
		return PredictResult{}, apperrors.New(apperrors.KindInvalidMove, "species B does not know the requested move", nil)
	}

	rec := model.DuelRecord{A: model.Combatant{Species: a, Move: moveA}, B: model.Combatant{Species: b, Move: moveB}}
	row, err := cur.pipeline.TransformOne(rec)
	if err != nil {
		return PredictResult{}, err
	}
	pA := cur.m.PredictProba(row)
	winner := 0
	if pA >= 0.5 {
		winner = 1
	}
	log.Debug().Float64("p_a", pA).Int("model_version", cur.version).Msg("predict complete")
	return PredictResult{
		Winner:           winner,
		PA:               pA,
		PB:               1 - pA,
		ConfidenceBucket: ConfidenceBucket(pA),
		ModelVersion:     cur.version,
	}, nil
}
