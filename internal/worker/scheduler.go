package worker

import (
	"context"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const replayBatchSize = 100

// SchedulerConfig holds the periodic jobs. Empty specs disable a job.
type SchedulerConfig struct {
	ResyncSpec string
	ReplaySpec string
	Catalog    service.CatalogService
	RDB        *redis.Client
}

// StartScheduler registers the cron jobs and starts the scheduler. Specs
// use six fields (seconds first). The scheduler stops when ctx is done.
func StartScheduler(ctx context.Context, cfg SchedulerConfig) (*cron.Cron, error) {
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	if cfg.ResyncSpec != "" && cfg.Catalog != nil {
		if _, err := c.AddFunc(cfg.ResyncSpec, func() { runResync(ctx, cfg.Catalog) }); err != nil {
			return nil, err
		}
	}
	if cfg.ReplaySpec != "" && cfg.RDB != nil {
		if _, err := c.AddFunc(cfg.ReplaySpec, func() { runReplay(ctx, cfg.RDB) }); err != nil {
			return nil, err
		}
	}

	c.Start()
	log.Info().Int("jobs", len(c.Entries())).Msg("scheduler: started")

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		log.Info().Msg("scheduler: stopped")
	}()
	return c, nil
}

func runResync(ctx context.Context, catalog service.CatalogService) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	if _, err := catalog.ResyncAll(ctx); err != nil {
		log.Error().Err(err).Msg("scheduler: fuel config resync failed")
	}
}

func runReplay(ctx context.Context, rdb *redis.Client) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if _, err := ReplayDLQ(ctx, rdb, QueueAudit, replayBatchSize); err != nil {
		log.Error().Err(err).Msg("scheduler: dlq replay failed")
	}
}
