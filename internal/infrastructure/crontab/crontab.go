package crontab

import (
	"context"
	"time"

	"github.com/mileusna/crontab"

	"tutor-server/services/chat-api/internal/domain/conversation"
	"tutor-server/services/chat-api/internal/infrastructure/logger"
	"tutor-server/services/chat-api/internal/infrastructure/metrics"
	"tutor-server/services/chat-api/internal/utils/platformerrors"
)

const CronJobTimeout = time.Minute

type Crontab struct {
	ctab  *crontab.Crontab
	convs *conversation.Service
}

func NewCrontab(convs *conversation.Service) *Crontab {
	return &Crontab{
		ctab:  crontab.New(),
		convs: convs,
	}
}

// Run schedules the background jobs and blocks until ctx is cancelled.
func (c *Crontab) Run(ctx context.Context) error {
	// execute once on server start
	c.sweepDeletedConversations(ctx)

	if err := c.ctab.AddJob("* * * * *", func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
		defer cancel()
		c.sweepDeletedConversations(jobCtx)
	}); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add conversation sweep job")
	}

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

// sweepDeletedConversations purges conversations whose soft-delete grace
// window has passed.
func (c *Crontab) sweepDeletedConversations(ctx context.Context) {
	log := logger.GetLogger()
	n, err := c.convs.SweepExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("conversation sweep failed")
		return
	}
	if n > 0 {
		metrics.ConversationsSweptTotal.Add(float64(n))
		log.Info().Int64("purged", n).Msg("swept soft-deleted conversations")
	}
}
