package jobs

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/cache"
)

// RedisOpt converts a REDIS_ADDR value, host:port or redis:// URL, into asynq options.
func RedisOpt(addr string) (asynq.RedisClientOpt, error) {
	opts, err := cache.Options(addr)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}, nil
}

// QueueStats summarises the default queue.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// QueueInspector is the part of *asynq.Inspector the stats readers use.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Stats reads the default queue counters.
func Stats(inspector QueueInspector) (QueueStats, error) {
	stats := QueueStats{Queue: QueueDefault}
	if inspector == nil {
		return stats, nil
	}
	info, err := inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// Client enqueues tasks on demand and inspects the queue.
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewClient connects a client and inspector to the given Redis.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts), inspector: asynq.NewInspector(redisOpts)}
}

// Enqueue submits the named task with its default payload.
func (c *Client) Enqueue(ctx context.Context, name, requestedBy string) (*asynq.TaskInfo, error) {
	task, err := NewTaskByName(name, requestedBy)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(defaultMaxRetry))
}

// Stats reads the default queue counters.
func (c *Client) Stats() (QueueStats, error) {
	return Stats(c.inspector)
}

// Scheduled lists the next tasks waiting for their process time.
func (c *Client) Scheduled(size int) ([]*asynq.TaskInfo, error) {
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

// Close releases the client and inspector connections.
func (c *Client) Close() error {
	return errors.Join(c.inspector.Close(), c.client.Close())
}
