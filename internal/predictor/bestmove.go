package predictor

import (
	"context"
	"math"
	"time"

	"github.com/letsgopredict/battlepredict/internal/apperrors"
	"github.com/letsgopredict/battlepredict/internal/logger"
	"github.com/letsgopredict/battlepredict/internal/model"
	"github.com/letsgopredict/battlepredict/pkg/duel"
)

// defaultBestMoveTimeout is used when the caller does not override it via
// config (spec.md §4.7, §6 PREDICTION_TIMEOUT_MS default 500ms). Only
// best_move is timed; predict() is a single model evaluation and does not
// suspend (spec.md §5).
const defaultBestMoveTimeout = 500 * time.Millisecond

// ScoredCandidate is one candidate move's evaluated win probability.
type ScoredCandidate struct {
	MoveID         int
	WinProbability float64
}

// BestMoveResult is the response shape for best_move().
type BestMoveResult struct {
	RecommendedMoveID int
	WinProbability    float64
	ScoredCandidates  []ScoredCandidate
}

// BestMove evaluates candidateMovesA (A's full learnset if empty) and
// recommends the one maximising A's win probability. If opponentMovesB is
// non-empty, it evaluates every (candidate_a, opponent_b) pair and
// maximises the minimum win probability over the opponent's choices
// (adversarial min-max); otherwise it assumes B plays its own best_move
// response to each candidate (spec.md §4.7, §4.3 best_move rule).
func (p *Predictor) BestMove(ctx context.Context, speciesAID, speciesBID int, candidateMovesA []int, opponentMovesB []int, timeout time.Duration) (BestMoveResult, error) {
	ctx = ensureRequestID(ctx)
	log := logger.ForRequest(ctx)
	log.Debug().Int("species_a", speciesAID).Int("species_b", speciesBID).
		Int("candidates_a", len(candidateMovesA)).Int("candidates_b", len(opponentMovesB)).
		Msg("best_move search started")

	if timeout <= 0 {
		timeout = defaultBestMoveTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cur, err := p.snapshot()
	if err != nil {
		return BestMoveResult{}, err
	}

	a, err := p.kb.Species(speciesAID)
	if err != nil {
		return BestMoveResult{}, err
	}
	b, err := p.kb.Species(speciesBID)
	if err != nil {
		return BestMoveResult{}, err
	}
	if len(candidateMovesA) == 0 {
		candidateMovesA = a.Learnset
	}

	var scored []ScoredCandidate
	for _, moveAID := range candidateMovesA {
		select {
		case <-ctx.Done():
			return BestMoveResult{}, apperrors.New(apperrors.KindDeadlineExceeded, "best_move search exceeded its deadline", ctx.Err())
		default:
		}

		moveA, err := p.kb.Move(moveAID)
		if err != nil {
			return BestMoveResult{}, err
		}

		var winProb float64
		if len(opponentMovesB) > 0 {
			winProb, err = p.worstCaseOver(cur, a, b, moveA, opponentMovesB)
		} else {
			winProb, err = p.assumeOpponentBestMove(cur, a, b, moveA)
		}
		if err != nil {
			return BestMoveResult{}, err
		}
		scored = append(scored, ScoredCandidate{MoveID: moveAID, WinProbability: winProb})
	}

	best := scored[0]
	for _, c := range scored[1:] {
		if c.WinProbability > best.WinProbability {
			best = c
		}
	}
	log.Debug().Int("recommended_move", best.MoveID).Float64("win_probability", best.WinProbability).Msg("best_move search complete")
	return BestMoveResult{RecommendedMoveID: best.MoveID, WinProbability: best.WinProbability, ScoredCandidates: scored}, nil
}

// worstCaseOver scores moveA against every move in opponentMovesB and
// returns the minimum win probability (the adversarial min-max criterion).
func (p *Predictor) worstCaseOver(cur *loaded, a, b model.Species, moveA model.Move, opponentMovesB []int) (float64, error) {
	worst := math.Inf(1)
	for _, moveBID := range opponentMovesB {
		moveB, err := p.kb.Move(moveBID)
		if err != nil {
			return 0, err
		}
		prob, err := p.winProbability(cur, a, b, moveA, moveB)
		if err != nil {
			return 0, err
		}
		if prob < worst {
			worst = prob
		}
	}
	return worst, nil
}

// assumeOpponentBestMove picks B's best_move response to moveA (the same
// effective-power argmax rule the scenario expander's best_move regime
// uses) and scores against it.
func (p *Predictor) assumeOpponentBestMove(cur *loaded, a, b model.Species, moveA model.Move) (float64, error) {
	moveB, err := p.bestMoveForSide(b, a)
	if err != nil {
		return 0, err
	}
	return p.winProbability(cur, a, b, moveA, moveB)
}

// bestMoveForSide mirrors scenario.Expander.bestMoveFor: the move in
// attacker's learnset maximising effective power against defender, ties
// broken by higher power then lower move id.
func (p *Predictor) bestMoveForSide(attacker, defender model.Species) (model.Move, error) {
	var best model.Move
	bestEP := math.Inf(-1)
	first := true
	for _, moveID := range attacker.Learnset {
		mv, err := p.kb.Move(moveID)
		if err != nil {
			return model.Move{}, err
		}
		ep := duel.EffectivePower(attacker, mv, defender)
		if first || ep > bestEP || (ep == bestEP && mv.Power > best.Power) || (ep == bestEP && mv.Power == best.Power && mv.ID < best.ID) {
			best, bestEP, first = mv, ep, false
		}
	}
	return best, nil
}

func (p *Predictor) winProbability(cur *loaded, a, b model.Species, moveA, moveB model.Move) (float64, error) {
	rec := model.DuelRecord{A: model.Combatant{Species: a, Move: moveA}, B: model.Combatant{Species: b, Move: moveB}}
	row, err := cur.pipeline.TransformOne(rec)
	if err != nil {
		return 0, err
	}
	return cur.m.PredictProba(row), nil
}
