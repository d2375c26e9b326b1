package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"sourcing_backend/platform/config"
	"sourcing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	reconcileUniqueFor = 5 * time.Minute
	reconcileMaxRetry  = 8
)

// Client enqueues calendar reconciliation. It satisfies the lifecycle
// engine's Reconciler.
type Client struct {
	client *asynq.Client
	queue  string
	log    *logger.Logger
}

func NewClient(cfg config.SchedulerConfig, log *logger.Logger) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
		log:    log,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleReconcile enqueues a reconcile task. Repeated failures for the same
// lead collapse into one pending task.
func (c *Client) ScheduleReconcile(ctx context.Context, leadID uuid.UUID, reason string) {
	if c == nil || c.client == nil {
		return
	}

	task, err := NewCalendarReconcileTask(CalendarReconcilePayload{LeadID: leadID.String(), Reason: reason})
	if err != nil {
		c.log.Error("failed to build reconcile task", "lead_id", leadID.String(), "error", err)
		return
	}

	_, err = c.client.EnqueueContext(context.WithoutCancel(ctx), task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(reconcileMaxRetry),
		asynq.Unique(reconcileUniqueFor),
	)
	switch {
	case err == nil:
		c.log.WithContext(ctx).Info("calendar reconcile enqueued", "lead_id", leadID.String(), "reason", reason)
	case errors.Is(err, asynq.ErrDuplicateTask):
	default:
		// The periodic sweep still finds this lead.
		c.log.WithContext(ctx).Error("failed to enqueue calendar reconcile", "lead_id", leadID.String(), "error", err)
	}
}

// LogReconciler only records drift. The periodic sweep repairs it. Used when
// redis is not configured, and by the worker so a failing reconcile retries
// through asynq instead of enqueueing itself again.
type LogReconciler struct {
	Log *logger.Logger
}

func (r LogReconciler) ScheduleReconcile(ctx context.Context, leadID uuid.UUID, reason string) {
	r.Log.WithContext(ctx).Warn("calendar reconcile deferred to sweep", "lead_id", leadID.String(), "reason", reason)
}

func queueName(cfg config.SchedulerConfig) string {
	if queue := cfg.GetAsynqQueueName(); queue != "" {
		return queue
	}
	return "default"
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
