package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/letsgopredict/battlepredict/internal/model"
)

// KBRepo reads the read-only species/move/type_effectiveness/learnset
// relations from Postgres (spec.md §6 External Interfaces), the same way
// GameRepo read games: a thin *sql.DB wrapper with one method per query.
type KBRepo struct {
	db *sql.DB
}

// NewKBRepo creates a KBRepo.
func NewKBRepo(db *sql.DB) *KBRepo {
	return &KBRepo{db: db}
}

// AllSpecies returns every species row joined with its learnset, ordered by
// id for deterministic downstream iteration.
func (r *KBRepo) AllSpecies() ([]model.Species, error) {
	ctx := context.Background()
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, hp, atk, def, sp_atk, sp_def, spe, type1, type2
		 FROM species ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query species: %w", err)
	}
	defer rows.Close()

	var out []model.Species
	for rows.Next() {
		var s model.Species
		var type2 sql.NullInt64
		if err := rows.Scan(&s.ID, &s.Name, &s.Stats.HP, &s.Stats.Atk, &s.Stats.Def,
			&s.Stats.SpAtk, &s.Stats.SpDef, &s.Stats.Spe, &s.Type1, &type2); err != nil {
			return nil, fmt.Errorf("scan species: %w", err)
		}
		if type2.Valid {
			s.Type2 = int(type2.Int64)
		} else {
			s.Type2 = -1
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate species: %w", err)
	}

	learnsets, err := r.allLearnsets()
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Learnset = learnsets[out[i].ID]
	}
	return out, nil
}

// allLearnsets returns species_id -> []move_id from the learnset relation.
func (r *KBRepo) allLearnsets() (map[int][]int, error) {
	rows, err := r.db.QueryContext(context.Background(),
		`SELECT species_id, move_id FROM learnset ORDER BY species_id, move_id`)
	if err != nil {
		return nil, fmt.Errorf("query learnset: %w", err)
	}
	defer rows.Close()

	out := make(map[int][]int)
	for rows.Next() {
		var speciesID, moveID int
		if err := rows.Scan(&speciesID, &moveID); err != nil {
			return nil, fmt.Errorf("scan learnset: %w", err)
		}
		out[speciesID] = append(out[speciesID], moveID)
	}
	return out, rows.Err()
}

// TypeEffectivenessRow is one row of the type_effectiveness relation
// (spec.md §6): attacker_type, defender_type, multiplier.
type TypeEffectivenessRow struct {
	AttackerType int
	DefenderType int
	Multiplier   float64
}

// AllTypeEffectiveness returns the full type_effectiveness relation, used
// only by the integrity checker to cross-validate the in-code typechart
// table against the KB's own record of it (spec.md §3 invariant ii: all 324
// pairs present). The duel simulator itself never queries this table at
// runtime — it uses pkg/typechart's pure function, per spec.md §4.1.
func (r *KBRepo) AllTypeEffectiveness() ([]TypeEffectivenessRow, error) {
	rows, err := r.db.QueryContext(context.Background(),
		`SELECT attacker_type, defender_type, multiplier FROM type_effectiveness`)
	if err != nil {
		return nil, fmt.Errorf("query type_effectiveness: %w", err)
	}
	defer rows.Close()

	var out []TypeEffectivenessRow
	for rows.Next() {
		var row TypeEffectivenessRow
		if err := rows.Scan(&row.AttackerType, &row.DefenderType, &row.Multiplier); err != nil {
			return nil, fmt.Errorf("scan type_effectiveness: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// AllMoves returns every move row, ordered by id.
func (r *KBRepo) AllMoves() ([]model.Move, error) {
	rows, err := r.db.QueryContext(context.Background(),
		`SELECT id, name, type, category, power, accuracy, priority, pp
		 FROM move ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query move: %w", err)
	}
	defer rows.Close()

	var out []model.Move
	for rows.Next() {
		var m model.Move
		var power, accuracy sql.NullInt64
		if err := rows.Scan(&m.ID, &m.Name, &m.Type, &m.Category, &power, &accuracy, &m.Priority, &m.PP); err != nil {
			return nil, fmt.Errorf("scan move: %w", err)
		}
		if power.Valid {
			m.Power = int(power.Int64)
		}
		if accuracy.Valid {
			m.Accuracy = int(accuracy.Int64)
		} else {
			m.Accuracy = -1 // null accuracy means "always hits"; feature pipeline maps to 100
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
