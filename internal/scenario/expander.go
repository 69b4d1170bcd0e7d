// Package scenario enumerates matchups into labelled DuelRecords under one
// of three sampling regimes while bounding combinatorial blow-up (spec.md
// §2 component 4, §4.3).
package scenario

import (
	"math"
	"math/rand"
	"sort"

	"github.com/letsgopredict/battlepredict/internal/config"
	"github.com/letsgopredict/battlepredict/internal/kb"
	"github.com/letsgopredict/battlepredict/internal/model"
	"github.com/letsgopredict/battlepredict/pkg/duel"
)

// Regime selects one of the three expansion rules from spec.md §4.3.
type Regime string

const (
	BestMove        Regime = "best_move"
	RandomMove      Regime = "random_move"
	AllCombinations Regime = "all_combinations"
)

// Config configures a single expansion run.
type Config struct {
	Regime                    Regime
	RandomSamplesPerMatchup   int // N for RandomMove, default 5
	MaxCombinationsPerMatchup int // cap for AllCombinations, 0 = unbounded, default 20
	RandomSeed                int64
}

// FromAppConfig maps the top-level app config's ScenarioType/etc. onto a
// scenario.Config. ScenarioAll is handled by the caller running all three
// regimes in sequence and concatenating, since it is not a single regime.
func FromAppConfig(c *config.Config, regime Regime) Config {
	return Config{
		Regime:                    regime,
		RandomSamplesPerMatchup:   c.RandomSamplesPerMatchup,
		MaxCombinationsPerMatchup: c.MaxCombinationsPerMatchup,
		RandomSeed:                c.RandomSeed,
	}
}

// Expander enumerates DuelRecords from a KB under a Config.
type Expander struct {
	kb  *kb.KB
	cfg Config
}

// New creates an Expander over the given KB.
func New(k *kb.KB, cfg Config) *Expander {
	return &Expander{kb: k, cfg: cfg}
}

// Yield is called once per emitted DuelRecord. Returning false stops the
// expansion early (the same short-circuit convention as filepath.WalkFunc).
// The dataset builder's callback always returns true and applies no row cap.
type Yield func(model.DuelRecord) bool

// Expand lazily emits DuelRecords over every ordered species pair
// (A,B) with A != B, under e.cfg.Regime. It is CPU-bound: each matchup's
// records are computed in full, then passed to yield one at a time, so a
// yield returning false can stop expansion part-way through a matchup.
func (e *Expander) Expand(yield Yield) error {
	ids := e.kb.AllSpeciesIDs()
	for _, aID := range ids {
		a, err := e.kb.Species(aID)
		if err != nil {
			return err
		}
		for _, bID := range ids {
			if aID == bID {
				continue
			}
			b, err := e.kb.Species(bID)
			if err != nil {
				return err
			}
			recs, err := e.expandMatchup(a, b)
			if err != nil {
				return err
			}
			for _, r := range recs {
				if !yield(r) {
					return nil
				}
			}
		}
	}
	return nil
}

func (e *Expander) expandMatchup(a, b model.Species) ([]model.DuelRecord, error) {
	switch e.cfg.Regime {
	case BestMove:
		return e.expandBestMove(a, b)
	case RandomMove:
		return e.expandRandomMove(a, b)
	case AllCombinations:
		return e.expandAllCombinations(a, b)
	default:
		return e.expandBestMove(a, b)
	}
}

// bestMoveFor picks the move in attacker's learnset maximising effective
// power against defender. Ties broken by higher base power, then lower
// move id (spec.md §4.3).
func (e *Expander) bestMoveFor(attacker, defender model.Species) (model.Move, error) {
	var best model.Move
	bestEP := math.Inf(-1)
	first := true
	for _, mvID := range attacker.Learnset {
		mv, err := e.kb.Move(mvID)
		if err != nil {
			return model.Move{}, err
		}
		ep := duel.EffectivePower(attacker, mv, defender)
		if first {
			best, bestEP, first = mv, ep, false
			continue
		}
		if ep > bestEP ||
			(ep == bestEP && mv.Power > best.Power) ||
			(ep == bestEP && mv.Power == best.Power && mv.ID < best.ID) {
			best, bestEP = mv, ep
		}
	}
	return best, nil
}

func (e *Expander) expandBestMove(a, b model.Species) ([]model.DuelRecord, error) {
	moveA, err := e.bestMoveFor(a, b)
	if err != nil {
		return nil, err
	}
	moveB, err := e.bestMoveFor(b, a)
	if err != nil {
		return nil, err
	}
	ca := model.Combatant{Species: a, Move: moveA}
	cb := model.Combatant{Species: b, Move: moveB}
	return []model.DuelRecord{{A: ca, B: cb, Scenario: model.ScenarioBestMove, Winner: duel.Resolve(ca, cb)}}, nil
}

// matchupSeed derives a deterministic RNG seed from the matchup ids and the
// run's random_seed, so the dataset is reproducible (spec.md §4.3, §5
// "deterministic functions of a single random_seed").
func matchupSeed(base int64, aID, bID int) int64 {
	h := uint64(base)
	h = h*1099511628211 ^ uint64(aID)
	h = h*1099511628211 ^ uint64(bID)
	return int64(h)
}

func (e *Expander) expandRandomMove(a, b model.Species) ([]model.DuelRecord, error) {
	n := e.cfg.RandomSamplesPerMatchup
	if n <= 0 {
		n = 5
	}
	total := len(a.Learnset) * len(b.Learnset)
	if total == 0 {
		return nil, nil
	}
	if n > total {
		n = total
	}

	rng := rand.New(rand.NewSource(matchupSeed(e.cfg.RandomSeed, a.ID, b.ID)))
	chosen := samplePairsWithoutReplacement(rng, len(a.Learnset), len(b.Learnset), n)

	out := make([]model.DuelRecord, 0, n)
	for _, pair := range chosen {
		moveA, err := e.kb.Move(a.Learnset[pair[0]])
		if err != nil {
			return nil, err
		}
		moveB, err := e.kb.Move(b.Learnset[pair[1]])
		if err != nil {
			return nil, err
		}
		ca := model.Combatant{Species: a, Move: moveA}
		cb := model.Combatant{Species: b, Move: moveB}
		out = append(out, model.DuelRecord{A: ca, B: cb, Scenario: model.ScenarioRandomMove, Winner: duel.Resolve(ca, cb)})
	}
	return out, nil
}

// samplePairsWithoutReplacement draws n distinct (i,j) index pairs from the
// nA×nB grid uniformly without replacement, using rng deterministically.
func samplePairsWithoutReplacement(rng *rand.Rand, nA, nB, n int) [][2]int {
	total := nA * nB
	idx := rng.Perm(total)[:n]
	out := make([][2]int, n)
	for k, flat := range idx {
		out[k] = [2]int{flat / nB, flat % nB}
	}
	return out
}

func (e *Expander) expandAllCombinations(a, b model.Species) ([]model.DuelRecord, error) {
	capN := e.cfg.MaxCombinationsPerMatchup
	total := len(a.Learnset) * len(b.Learnset)
	if total == 0 {
		return nil, nil
	}

	var pairs [][2]int
	if capN <= 0 || total <= capN {
		pairs = make([][2]int, 0, total)
		for i := range a.Learnset {
			for j := range b.Learnset {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	} else {
		pairs = roundRobinPairs(len(a.Learnset), len(b.Learnset), capN)
	}

	out := make([]model.DuelRecord, 0, len(pairs))
	for _, p := range pairs {
		moveA, err := e.kb.Move(a.Learnset[p[0]])
		if err != nil {
			return nil, err
		}
		moveB, err := e.kb.Move(b.Learnset[p[1]])
		if err != nil {
			return nil, err
		}
		ca := model.Combatant{Species: a, Move: moveA}
		cb := model.Combatant{Species: b, Move: moveB}
		out = append(out, model.DuelRecord{A: ca, B: cb, Scenario: model.ScenarioAllCombinations, Winner: duel.Resolve(ca, cb)})
	}
	return out, nil
}

// roundRobinPairs selects `cap` pairs out of the nA×nB grid round-robin over
// A-move then B-move, to keep coverage uniform when capped (spec.md §4.3).
func roundRobinPairs(nA, nB, capN int) [][2]int {
	type pair struct{ i, j int }
	var all []pair
	for i := 0; i < nA; i++ {
		for j := 0; j < nB; j++ {
			all = append(all, pair{i, j})
		}
	}
	// Sort round-robin: walk A-move index outer, B-move index inner, taking
	// one from each A-move "row" in turn until cap is reached.
	byRow := make(map[int][]pair)
	for _, p := range all {
		byRow[p.i] = append(byRow[p.i], p)
	}
	rows := make([]int, 0, len(byRow))
	for i := range byRow {
		rows = append(rows, i)
	}
	sort.Ints(rows)

	out := make([][2]int, 0, capN)
	pos := 0
	for len(out) < capN {
		progressed := false
		for _, i := range rows {
			if pos < len(byRow[i]) {
				p := byRow[i][pos]
				out = append(out, [2]int{p.i, p.j})
				progressed = true
				if len(out) == capN {
					return out
				}
			}
		}
		if !progressed {
			break
		}
		pos++
	}
	return out
}
