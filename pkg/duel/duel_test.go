package duel

import (
	"testing"

	"github.com/letsgopredict/battlepredict/internal/model"
	"github.com/letsgopredict/battlepredict/pkg/typechart"
)

func charizard() model.Species {
	return model.Species{ID: 1, Name: "Charizard", Type1: typechart.Fire, Type2: typechart.Flying,
		Stats: model.Stats{HP: 78, Atk: 84, Def: 78, SpAtk: 109, SpDef: 85, Spe: 100}}
}

func venusaur() model.Species {
	return model.Species{ID: 2, Name: "Venusaur", Type1: typechart.Grass, Type2: typechart.Poison,
		Stats: model.Stats{HP: 80, Atk: 82, Def: 83, SpAtk: 100, SpDef: 100, Spe: 80}}
}

func pikachu() model.Species {
	return model.Species{ID: 3, Name: "Pikachu", Type1: typechart.Electric, Type2: -1,
		Stats: model.Stats{HP: 35, Atk: 55, Def: 40, SpAtk: 50, SpDef: 50, Spe: 90}}
}

func sandshrew() model.Species {
	return model.Species{ID: 4, Name: "Sandshrew", Type1: typechart.Ground, Type2: -1,
		Stats: model.Stats{HP: 50, Atk: 75, Def: 85, SpAtk: 20, SpDef: 30, Spe: 40}}
}

func flamethrower() model.Move {
	return model.Move{ID: 10, Name: "Flamethrower", Type: typechart.Fire, Category: model.Special, Power: 95, Accuracy: 100, Priority: 0}
}

func thunderbolt() model.Move {
	return model.Move{ID: 20, Name: "Thunderbolt", Type: typechart.Electric, Category: model.Special, Power: 90, Accuracy: 100, Priority: 0}
}

func TestCharizardBeatsVenusaurWithFlamethrower(t *testing.T) {
	a := model.Combatant{Species: charizard(), Move: flamethrower()}
	b := model.Combatant{Species: venusaur(), Move: thunderbolt() /* irrelevant, placeholder */}
	if got := Resolve(a, b); got != 1 {
		t.Fatalf("expected Charizard (A) to win, got %d", got)
	}
}

func TestPikachuCannotKOSandshrewWithThunderbolt(t *testing.T) {
	// Ground is immune to Electric: Pikachu's effective power is 0, so
	// Pikachu never wins this matchup via Thunderbolt (spec.md §8 scenario 2).
	a := model.Combatant{Species: pikachu(), Move: thunderbolt()}
	b := model.Combatant{Species: sandshrew(), Move: model.Move{ID: 99, Name: "Scratch", Type: typechart.Normal, Category: model.Physical, Power: 40, Accuracy: 100}}
	if got := Resolve(a, b); got != 0 {
		t.Fatalf("expected Sandshrew (B) to win when A's move is type-immune, got %d", got)
	}
}

func TestMirrorMatchSpeedTieBrokenByAFirst(t *testing.T) {
	a := model.Combatant{Species: pikachu(), Move: thunderbolt()}
	b := model.Combatant{Species: pikachu(), Move: thunderbolt()}
	if got := Resolve(a, b); got != 1 {
		t.Fatalf("mirror match with equal speed should favour A by convention, got %d", got)
	}
}

func TestBothZeroDamageFasterWins(t *testing.T) {
	statusMove := model.Move{ID: 1, Name: "Growl", Type: typechart.Normal, Category: model.Status, Power: 0}
	faster := model.Species{ID: 5, Name: "Fast", Type1: typechart.Normal, Type2: -1, Stats: model.Stats{HP: 100, Atk: 50, Def: 50, SpAtk: 50, SpDef: 50, Spe: 120}}
	slower := model.Species{ID: 6, Name: "Slow", Type1: typechart.Normal, Type2: -1, Stats: model.Stats{HP: 100, Atk: 50, Def: 50, SpAtk: 50, SpDef: 50, Spe: 10}}

	a := model.Combatant{Species: slower, Move: statusMove}
	b := model.Combatant{Species: faster, Move: statusMove}
	if got := Resolve(a, b); got != 0 {
		t.Fatalf("faster side (B) should win by convention when both deal zero damage, got %d", got)
	}
}

func TestPriorityBeatsSpeed(t *testing.T) {
	quickAttack := model.Move{ID: 2, Name: "Quick Attack", Type: typechart.Normal, Category: model.Physical, Power: 40, Accuracy: 100, Priority: 1}
	tackle := model.Move{ID: 3, Name: "Tackle", Type: typechart.Normal, Category: model.Physical, Power: 40, Accuracy: 100, Priority: 0}
	slowButPriority := model.Species{ID: 7, Name: "SlowPriority", Type1: typechart.Normal, Type2: -1, Stats: model.Stats{HP: 200, Atk: 120, Def: 50, SpAtk: 50, SpDef: 50, Spe: 5}}
	fastNoPriority := model.Species{ID: 8, Name: "FastNoPriority", Type1: typechart.Normal, Type2: -1, Stats: model.Stats{HP: 20, Atk: 40, Def: 40, SpAtk: 40, SpDef: 40, Spe: 200}}

	a := model.Combatant{Species: slowButPriority, Move: quickAttack}
	b := model.Combatant{Species: fastNoPriority, Move: tackle}
	if got := Resolve(a, b); got != 1 {
		t.Fatalf("priority move should move first and KO a frail target even at lower speed, got %d", got)
	}
}

func TestResolveIsPureAndTotal(t *testing.T) {
	a := model.Combatant{Species: charizard(), Move: flamethrower()}
	b := model.Combatant{Species: venusaur(), Move: thunderbolt()}
	first := Resolve(a, b)
	for i := 0; i < 100; i++ {
		if got := Resolve(a, b); got != first {
			t.Fatalf("Resolve is not deterministic: got %d, want %d", got, first)
		}
	}
}

func TestDamageNeverDividesByZero(t *testing.T) {
	statusMove := model.Move{ID: 1, Name: "Growl", Type: typechart.Normal, Category: model.Status, Power: 0}
	if d := Damage(100, 0, EffectivePower(pikachu(), statusMove, sandshrew())); d != 0 {
		t.Fatalf("status move should deal 0 damage even with 0 defence, got %d", d)
	}
}
