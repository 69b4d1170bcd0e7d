// Command kbcheck validates the knowledge base's spec.md §3 invariants
// before a training run is allowed to start: (i) every species' learnset is
// a subset of known move ids, (ii) the type-effectiveness table is total
// over all 324 attacker/defender pairs and agrees with the in-code
// pkg/typechart table. It exits on the first violation it finds (kb.Load
// rejects the first unknown learnset move; CheckTypeChartTotal returns the
// first bad or missing row), mirroring cmd/import_selfplay's role as a
// data-loading utility that runs ahead of the main pipeline.
package main

import (
	"github.com/rs/zerolog/log"

	"github.com/letsgopredict/battlepredict/internal/config"
	"github.com/letsgopredict/battlepredict/internal/kb"
	"github.com/letsgopredict/battlepredict/internal/logger"
	"github.com/letsgopredict/battlepredict/internal/repository/postgres"
)

func main() {
	logger.Init()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	repo := postgres.NewKBRepo(db)

	k, err := kb.Load(repo)
	if err != nil {
		log.Fatal().Err(err).Msg("knowledge base failed invariant (i): learnset references an unknown move")
	}
	log.Info().Int("species", k.NumSpecies()).Int("moves", k.NumMoves()).Msg("learnsets are a subset of known moves")

	rows, err := repo.AllTypeEffectiveness()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read type_effectiveness")
	}
	kbRows := make([]kb.TypeEffectivenessRow, len(rows))
	for i, r := range rows {
		kbRows[i] = kb.TypeEffectivenessRow{AttackerType: r.AttackerType, DefenderType: r.DefenderType, Multiplier: r.Multiplier}
	}
	if err := kb.CheckTypeChartTotal(kbRows); err != nil {
		log.Fatal().Err(err).Msg("knowledge base failed invariant (ii): type_effectiveness is not total")
	}
	log.Info().Int("rows", len(kbRows)).Msg("type_effectiveness is total over all 18x18 pairs and agrees with pkg/typechart")

	if errs := k.CheckLearnsets(); len(errs) > 0 {
		for _, e := range errs {
			log.Error().Err(e).Msg("learnset violation")
		}
		log.Fatal().Int("violations", len(errs)).Msg("knowledge base has learnset violations")
	}

	log.Info().Msg("knowledge base passed all invariant checks")
}
