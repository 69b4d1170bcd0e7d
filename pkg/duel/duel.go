// Package duel implements the deterministic one-turn battle resolver
// (spec.md §4.2): the ground-truth labeller for the learning pipeline. It
// is pure (no global mutable state) and total (defined for every valid
// combatant pair) — no randomness ever enters the result.
package duel

import (
	"math"

	"github.com/letsgopredict/battlepredict/internal/model"
	"github.com/letsgopredict/battlepredict/pkg/typechart"
)

// Level is the fixed training level all duels are simulated at (spec.md
// §4.2, §9 open question: generalising to arbitrary level is left to future
// work and would need a new feature column).
const Level = 50

const stab = 1.5

// EffectivePower returns a move's power scaled by STAB and type
// effectiveness against the defender (spec.md §4.2 step 1). Status moves
// (power 0) always contribute 0.
func EffectivePower(attacker model.Species, move model.Move, defender model.Species) float64 {
	if move.Power <= 0 {
		return 0
	}
	mult := typechart.Multiplier(move.Type, defender.Type1, defender.Type2)
	s := 1.0
	if attacker.HasType(move.Type) {
		s = stab
	}
	return float64(move.Power) * s * mult
}

// Damage computes the deterministic per-turn damage a combatant deals,
// using the simplified Let's Go formula from spec.md §4.2 step 2. Damage is
// floor-clamped to at least 1 whenever effective power is nonzero, and is
// exactly 0 when the move has no effective power at all (status move or a
// 0x type matchup) — turnsToKO then treats 0 damage as "cannot KO" rather
// than dividing by a clamped 1.
func Damage(attack, defence int, effectivePower float64) int {
	if effectivePower <= 0 {
		return 0
	}
	raw := (2.0*Level/5.0+2.0)*effectivePower*float64(attack)/float64(defence)/50.0 + 2.0
	d := int(math.Floor(raw))
	if d < 1 {
		d = 1
	}
	return d
}

// attackDefenceFor returns the attacking and defending stat for a move's
// category (physical uses Atk/Def, special uses SpAtk/SpDef).
func attackDefenceFor(attacker, defender model.Species, move model.Move) (atk, def int) {
	if move.Category == model.Special {
		return attacker.Stats.SpAtk, defender.Stats.SpDef
	}
	return attacker.Stats.Atk, defender.Stats.Def
}

// turnsToKO returns ceil(defenderHP / damage), or math.MaxInt32 if damage is
// 0 (the side can never KO with this move).
func turnsToKO(defenderHP, damage int) int {
	if damage <= 0 {
		return math.MaxInt32
	}
	n := defenderHP / damage
	if defenderHP%damage != 0 {
		n++
	}
	return n
}

// Resolve deterministically computes the winner of a one-turn duel between
// combatant A and combatant B (spec.md §4.2). Returns 1 if A wins, 0 if B
// wins. Total and pure: defined for every valid pair, including 0-power
// status moves and 0× type matchups.
func Resolve(a, b model.Combatant) int {
	epA := EffectivePower(a.Species, a.Move, b.Species)
	epB := EffectivePower(b.Species, b.Move, a.Species)

	atkA, defA := attackDefenceFor(a.Species, b.Species, a.Move)
	atkB, defB := attackDefenceFor(b.Species, a.Species, b.Move)

	dmgA := Damage(atkA, defA, epA)
	dmgB := Damage(atkB, defB, epB)

	koA := turnsToKO(b.Species.Stats.HP, dmgA) // turns for A to KO B
	koB := turnsToKO(a.Species.Stats.HP, dmgB) // turns for B to KO A

	// Resolve order: higher priority first; tie-break by speed; remaining
	// ties broken deterministically by A-first (spec.md §4.2 step 4).
	aFirst := true
	switch {
	case a.Move.Priority != b.Move.Priority:
		aFirst = a.Move.Priority > b.Move.Priority
	case a.Species.Stats.Spe != b.Species.Stats.Spe:
		aFirst = a.Species.Stats.Spe > b.Species.Stats.Spe
	default:
		aFirst = true
	}

	// A side whose damage is 0 never wins unless the opponent's damage is
	// also 0, in which case the faster side wins by convention (step 5).
	if dmgA == 0 && dmgB == 0 {
		if aFirst {
			return 1
		}
		return 0
	}
	if dmgA == 0 {
		return 0
	}
	if dmgB == 0 {
		return 1
	}

	if aFirst {
		if koA <= koB {
			return 1
		}
		return 0
	}
	if koB <= koA {
		return 0
	}
	return 1
}
