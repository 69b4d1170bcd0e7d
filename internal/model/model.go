// Package model holds the plain data types shared across the battle-outcome
// learning pipeline: the knowledge-base entities, the per-duel records the
// scenario expander emits, and the artifact metadata the registry persists.
package model

import "time"

// Category is a move's combat category.
type Category string

const (
	Physical Category = "physical"
	Special  Category = "special"
	Status   Category = "status"
)

// Stats are a species' six base stats, each in [1,255].
type Stats struct {
	HP     int `json:"hp"`
	Atk    int `json:"atk"`
	Def    int `json:"def"`
	SpAtk  int `json:"sp_atk"`
	SpDef  int `json:"sp_def"`
	Spe    int `json:"spe"`
}

// Sum returns the sum of all six base stats.
func (s Stats) Sum() int {
	return s.HP + s.Atk + s.Def + s.SpAtk + s.SpDef + s.Spe
}

// Species is a Pokémon species or form, immutable for a training run.
type Species struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Stats     Stats  `json:"stats"`
	Type1     int    `json:"type1"`
	Type2     int    `json:"type2"` // -1 if the species has only one type
	Learnset  []int  `json:"learnset"`
}

// HasType reports whether the species carries the given type id.
func (s Species) HasType(typeID int) bool {
	return s.Type1 == typeID || (s.Type2 >= 0 && s.Type2 == typeID)
}

// Knows reports whether moveID is in the species' learnset.
func (s Species) Knows(moveID int) bool {
	for _, m := range s.Learnset {
		if m == moveID {
			return true
		}
	}
	return false
}

// Move is a combat action, immutable for a training run.
type Move struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Type     int      `json:"type"`
	Category Category `json:"category"`
	Power    int      `json:"power"`    // 0 for status moves
	Accuracy int      `json:"accuracy"` // -1 encodes null ("always hits" moves); feature pipeline maps to 100
	Priority int      `json:"priority"` // [-7, +7]
	PP       int      `json:"pp"`
}

// EffectiveAccuracy returns the move's accuracy with null mapped to 100,
// per spec.md §8 boundary behaviour.
func (m Move) EffectiveAccuracy() int {
	if m.Accuracy < 0 {
		return 100
	}
	return m.Accuracy
}

// Combatant is a species bound to a chosen move for a single duel.
type Combatant struct {
	Species Species
	Move    Move
}

// Scenario tags how a DuelRecord was produced; excluded from the feature
// vector (spec.md §4.3).
type Scenario string

const (
	ScenarioBestMove       Scenario = "best_move"
	ScenarioRandomMove     Scenario = "random_move"
	ScenarioAllCombinations Scenario = "all_combinations"
)

// DuelRecord is one labelled training example.
type DuelRecord struct {
	A        Combatant
	B        Combatant
	Scenario Scenario
	Winner   int // 0 or 1; 1 means A wins
}

// Stage is the lifecycle position of a ModelArtifact bundle.
type Stage string

const (
	StageNone       Stage = "none"
	StageStaging    Stage = "staging"
	StageProduction Stage = "production"
	StageArchived   Stage = "archived"
)

// Metadata is the JSON-serialisable companion of a ModelArtifact, persisted
// as metadata.json alongside model.bin and scalers.pkl (spec.md §6).
type Metadata struct {
	Version            int                `json:"version"`
	Name               string             `json:"name"`
	Description        string             `json:"description"`
	Stage              Stage              `json:"stage"`
	ColumnOrder        []string           `json:"column_order"`
	Hyperparameters    map[string]float64 `json:"hyperparameters"`
	Metrics            map[string]float64 `json:"metrics"`
	FeatureImportances map[string]float64 `json:"feature_importances"`
	ScenarioConfig      ScenarioConfig    `json:"scenario_config"`
	TrainingSeed       int64              `json:"training_seed"`
	CreatedAt          time.Time          `json:"created_at"`
}

// ScenarioConfig captures the run configuration that produced the training
// dataset, persisted in metadata for reproducibility (spec.md §8 law 6).
type ScenarioConfig struct {
	ScenarioType            string `json:"scenario_type"`
	RandomSamplesPerMatchup int    `json:"random_samples_per_matchup"`
	MaxCombinationsPerMatchup int  `json:"max_combinations_per_matchup"`
	RandomSeed              int64  `json:"random_seed"`
}
