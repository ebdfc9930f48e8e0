package notify

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/FrithiofJensen/openproject/internal/metrics"
)

// ErrPoolClosed is returned by Submit after Stop.
var ErrPoolClosed = errors.New("notify: shard pool closed")

// QueueFullError reports a shard that stayed full for the enqueue timeout.
type QueueFullError struct {
	Shard    int
	Capacity int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("notify: shard %d full (capacity %d)", e.Shard, e.Capacity)
}

// ShardConfig sizes a ShardPool.
type ShardConfig struct {
	Shards         int
	QueueSize      int
	EnqueueTimeout time.Duration
}

type shardJob struct {
	ctx context.Context
	run func(context.Context)
}

// ShardPool runs jobs on workers partitioned by a hash of their key. Jobs
// sharing a key run one at a time in submission order; different keys may
// run in parallel.
type ShardPool struct {
	cfg    ShardConfig
	queues []chan shardJob
	done   chan struct{}
	closed atomic.Bool
	wg     sync.WaitGroup
	log    zerolog.Logger
}

// NewShardPool starts the shard workers.
func NewShardPool(cfg ShardConfig, log zerolog.Logger) *ShardPool {
	if cfg.Shards <= 0 {
		cfg.Shards = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = 100 * time.Millisecond
	}
	p := &ShardPool{
		cfg:    cfg,
		queues: make([]chan shardJob, cfg.Shards),
		done:   make(chan struct{}),
		log:    log,
	}
	for i := range p.queues {
		p.queues[i] = make(chan shardJob, cfg.QueueSize)
		p.wg.Add(1)
		go p.work(i, p.queues[i])
	}
	return p
}

// Submit enqueues run on the shard owning key.
func (p *ShardPool) Submit(ctx context.Context, key string, run func(context.Context)) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	shard := p.shardFor(key)
	timer := time.NewTimer(p.cfg.EnqueueTimeout)
	defer timer.Stop()
	select {
	case p.queues[shard] <- shardJob{ctx: ctx, run: run}:
		return nil
	case <-p.done:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return &QueueFullError{Shard: shard, Capacity: p.cfg.QueueSize}
	}
}

// Stop drains queued jobs and waits for the workers. It is idempotent.
func (p *ShardPool) Stop() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

func (p *ShardPool) work(idx int, ch <-chan shardJob) {
	defer p.wg.Done()
	for {
		select {
		case j := <-ch:
			p.runSafe(idx, j)
		case <-p.done:
			for {
				select {
				case j := <-ch:
					// the submitter's context may be gone by now
					p.runSafe(idx, shardJob{ctx: context.WithoutCancel(j.ctx), run: j.run})
				default:
					return
				}
			}
		}
	}
}

func (p *ShardPool) runSafe(idx int, j shardJob) {
	defer func() {
		if r := recover(); r != nil {
			metrics.Notifications.WithLabelValues("panicked").Inc()
			p.log.Error().Int("shard", idx).Interface("panic", r).Msg("notification job panicked")
		}
	}()
	j.run(j.ctx)
}

func (p *ShardPool) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.cfg.Shards))
}
