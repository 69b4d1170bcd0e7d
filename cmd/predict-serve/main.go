// Command predict-serve loads the production bundle and holds it ready for
// in-process Predict/BestMove calls (spec.md §2 component 8, §4.7). The
// HTTP surface that would turn these into requests is an external
// collaborator out of scope for this repository (spec.md §1); this binary
// owns only the load-once-serve-many lifecycle: initial load with fallback,
// a prediction cache, and an explicit reload on SIGHUP, mirroring
// cmd/bot's signal-driven shutdown in the teacher.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/letsgopredict/battlepredict/internal/config"
	"github.com/letsgopredict/battlepredict/internal/kb"
	"github.com/letsgopredict/battlepredict/internal/logger"
	"github.com/letsgopredict/battlepredict/internal/predictcache"
	"github.com/letsgopredict/battlepredict/internal/predictor"
	"github.com/letsgopredict/battlepredict/internal/registry"
	"github.com/letsgopredict/battlepredict/internal/repository/postgres"
	"github.com/letsgopredict/battlepredict/internal/repository/redis"
)

const modelName = "battlepredict"

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

	k, err := kb.Load(postgres.NewKBRepo(db))
	if err != nil {
		log.Fatal().Err(err).Msg("knowledge base load failed")
	}

	reg, err := registry.Open(cfg.ModelRegistryDir, modelName)
	if err != nil {
		log.Fatal().Err(err).Msg("registry open failed")
	}

	pred, err := predictor.New(reg, cfg.ModelLocalFallback, k)
	if err != nil {
		// spec.md §7: ModelNotAvailable is fatal at start-up.
		log.Fatal().Err(err).Msg("predictor start-up failed: no production bundle and no local fallback")
	}
	log.Info().Msg("predictor ready")

	var cache *predictcache.Cache
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable; serving without prediction cache")
	} else {
		defer redisClient.Close()
		cache = predictcache.New(redisClient)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case s := <-sig:
			switch s {
			case syscall.SIGHUP:
				log.Info().Msg("SIGHUP received: reloading production bundle")
				if err := pred.Reload(); err != nil {
					log.Error().Err(err).Msg("reload failed; continuing to serve the previously loaded bundle")
					continue
				}
				if cache != nil {
					if err := cache.InvalidateAll(ctx); err != nil {
						log.Error().Err(err).Msg("prediction cache invalidation failed after reload")
					}
				}
				log.Info().Msg("reload complete")
			default:
				log.Info().Str("signal", s.String()).Msg("shutting down")
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
