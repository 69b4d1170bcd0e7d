// Command promote applies spec.md §4.6's promotion operations to a
// registered bundle: with --version and --stage it calls promote(version,
// target_stage) directly; otherwise it runs promote_best(promotion_metric,
// promotion_threshold) from the configuration envelope (spec.md §6), the
// way the trainer's acceptance contract (§4.5: "a model with test accuracy
// < 0.80 must not be auto-promoted") is meant to gate production rollout.
package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"github.com/letsgopredict/battlepredict/internal/config"
	"github.com/letsgopredict/battlepredict/internal/logger"
	"github.com/letsgopredict/battlepredict/internal/model"
	"github.com/letsgopredict/battlepredict/internal/registry"
)

const modelName = "battlepredict"

func main() {
	version := flag.Int("version", 0, "version to promote (0 selects promote_best over every registered version)")
	stage := flag.String("stage", "production", "target stage: none, staging, production, archived")
	flag.Parse()

	logger.Init()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	reg, err := registry.Open(cfg.ModelRegistryDir, modelName)
	if err != nil {
		log.Fatal().Err(err).Msg("registry open failed")
	}

	if *version != 0 {
		if err := reg.Promote(*version, model.Stage(*stage)); err != nil {
			log.Fatal().Err(err).Int("version", *version).Str("stage", *stage).Msg("promote failed")
		}
		log.Info().Int("version", *version).Str("stage", *stage).Msg("promoted")
		return
	}

	promoted, ok, err := reg.PromoteBest(cfg.PromotionMetric, cfg.PromotionThreshold)
	if err != nil {
		log.Fatal().Err(err).Msg("promote_best failed")
	}
	if !ok {
		log.Warn().Str("metric", cfg.PromotionMetric).Float64("threshold", cfg.PromotionThreshold).
			Msg("no version cleared the promotion threshold; production pointer unchanged")
		return
	}
	log.Info().Int("version", promoted).Str("metric", cfg.PromotionMetric).Msg("promoted best eligible version to production")
}
