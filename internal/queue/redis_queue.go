// Package queue delivers document processing tasks over a Redis stream.
//
// Delivery is at least once: a consumer that dies mid-task leaves the message
// pending in the group, and another consumer reclaims it with XAUTOCLAIM once
// it has been idle for ClaimIdle. Handlers must therefore be idempotent.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	fieldTenantID   = "tenant_id"
	fieldDocumentID = "document_id"
	fieldAttempt    = "attempt"
)

// Task is one queued unit of work. Attempt counts previous failed deliveries.
type Task struct {
	TenantID   string
	DocumentID string
	Attempt    int
}

// Handler processes a task. A non-nil error schedules a retry.
type Handler func(ctx context.Context, task Task) error

// Config tunes the queue. Zero values fall back to defaults.
type Config struct {
	Addr       string
	Password   string
	Stream     string
	Group      string
	Consumer   string
	MaxRetries int
	Block      time.Duration
	ClaimIdle  time.Duration
	RetryDelay time.Duration
	MaxLen     int64
	ReadCount  int64
	ClaimCount int64
}

// RedisQueue is a Redis stream with a single consumer group
type RedisQueue struct {
	client       *redis.Client
	logger       *zap.Logger
	stream       string
	group        string
	consumerBase string
	maxRetries   int
	block        time.Duration
	claimIdle    time.Duration
	retryDelay   time.Duration
	maxLen       int64
	readCount    int64
	claimCount   int64

	groupOnce sync.Once
	groupErr  error
	wg        sync.WaitGroup
}

// NewRedisQueue connects to Redis and prepares a queue. The consumer group is
// created lazily on the first Enqueue or Start.
func NewRedisQueue(cfg Config, logger *zap.Logger) (*RedisQueue, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		return nil, errors.New("queue stream required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	q := &RedisQueue{
		client:       redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password}),
		logger:       logger.With(zap.String("stream", stream)),
		stream:       stream,
		group:        withDefault(strings.TrimSpace(cfg.Group), "askbase-workers"),
		consumerBase: withDefault(strings.TrimSpace(cfg.Consumer), uuid.NewString()),
		maxRetries:   cfg.MaxRetries,
		block:        cfg.Block,
		claimIdle:    cfg.ClaimIdle,
		retryDelay:   cfg.RetryDelay,
		maxLen:       cfg.MaxLen,
		readCount:    cfg.ReadCount,
		claimCount:   cfg.ClaimCount,
	}
	if q.maxRetries <= 0 {
		q.maxRetries = 3
	}
	if q.block <= 0 {
		q.block = 5 * time.Second
	}
	if q.claimIdle <= 0 {
		q.claimIdle = time.Minute
	}
	if q.retryDelay < 0 {
		q.retryDelay = 0
	}
	if q.maxLen <= 0 {
		q.maxLen = 10000
	}
	if q.readCount <= 0 {
		q.readCount = 10
	}
	if q.claimCount <= 0 {
		q.claimCount = 10
	}
	return q, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Ping checks the Redis connection
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Enqueue appends a task to the stream
func (q *RedisQueue) Enqueue(ctx context.Context, task Task) error {
	if task.TenantID == "" || task.DocumentID == "" {
		return errors.New("task requires tenant and document")
	}
	if err := q.ensureGroup(ctx); err != nil {
		return err
	}
	if err := q.client.XAdd(ctx, q.addArgs(task)).Err(); err != nil {
		return fmt.Errorf("enqueue document %s: %w", task.DocumentID, err)
	}
	return nil
}

func (q *RedisQueue) addArgs(task Task) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]any{
			fieldTenantID:   task.TenantID,
			fieldDocumentID: task.DocumentID,
			fieldAttempt:    strconv.Itoa(task.Attempt),
		},
	}
}

// Start launches concurrency consumers that run handler for every delivered
// task until ctx is cancelled. It returns immediately; use Wait to block until
// the consumers have exited.
func (q *RedisQueue) Start(ctx context.Context, concurrency int, handler Handler) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	if err := q.ensureGroup(ctx); err != nil {
		return err
	}
	for i := range concurrency {
		consumer := fmt.Sprintf("%s-%d", q.consumerBase, i)
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.consumeLoop(ctx, consumer, handler)
		}()
	}
	q.logger.Info("document queue consumers started",
		zap.String("group", q.group),
		zap.Int("consumers", concurrency),
	)
	return nil
}

// Wait blocks until every consumer started by Start has returned
func (q *RedisQueue) Wait() {
	q.wg.Wait()
}

// Close releases the Redis connection
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func (q *RedisQueue) ensureGroup(ctx context.Context) error {
	q.groupOnce.Do(func() {
		err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			q.groupErr = fmt.Errorf("create consumer group %s: %w", q.group, err)
		}
	})
	return q.groupErr
}

func (q *RedisQueue) consumeLoop(ctx context.Context, consumer string, handler Handler) {
	log := q.logger.With(zap.String("consumer", consumer))
	for {
		if ctx.Err() != nil {
			return
		}

		msgs, err := q.claimPending(ctx, consumer)
		if err != nil && ctx.Err() == nil {
			log.Warn("reclaim pending messages failed", zap.Error(err))
		}
		for _, msg := range msgs {
			q.handleMessage(ctx, log, msg, handler)
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: consumer,
			Streams:  []string{q.stream, ">"},
			Count:    q.readCount,
			Block:    q.block,
		}).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Warn("read from stream failed", zap.Error(err))
				sleep(ctx, time.Second)
			}
			continue
		}
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				q.handleMessage(ctx, log, msg, handler)
			}
		}
	}
}

func (q *RedisQueue) claimPending(ctx context.Context, consumer string) ([]redis.XMessage, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  q.claimIdle,
		Start:    "0-0",
		Count:    q.claimCount,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return msgs, err
}

func (q *RedisQueue) handleMessage(ctx context.Context, log *zap.Logger, msg redis.XMessage, handler Handler) {
	task, ok := decodeTask(msg.Values)
	if !ok {
		log.Warn("dropping malformed message", zap.String("message_id", msg.ID))
		q.ackAndDel(ctx, msg.ID)
		return
	}
	log = log.With(
		zap.String("message_id", msg.ID),
		zap.String("tenant_id", task.TenantID),
		zap.String("document_id", task.DocumentID),
		zap.Int("attempt", task.Attempt),
	)

	err := handler(ctx, task)
	if err == nil {
		q.ackAndDel(ctx, msg.ID)
		return
	}

	if task.Attempt+1 >= q.maxRetries {
		log.Error("task failed, retries exhausted", zap.Error(err), zap.Int("max_retries", q.maxRetries))
		q.ackAndDel(ctx, msg.ID)
		return
	}

	log.Warn("task failed, requeueing", zap.Error(err))
	if !sleep(ctx, q.retryDelay) {
		return
	}
	task.Attempt++
	if err := q.requeueAndAck(ctx, msg.ID, task); err != nil {
		log.Error("requeue failed, message stays pending", zap.Error(err))
	}
}

func (q *RedisQueue) ackAndDel(ctx context.Context, msgID string) {
	pipe := q.client.TxPipeline()
	pipe.XAck(ctx, q.stream, q.group, msgID)
	pipe.XDel(ctx, q.stream, msgID)
	if _, err := pipe.Exec(ctx); err != nil {
		q.logger.Warn("ack failed", zap.String("message_id", msgID), zap.Error(err))
	}
}

// requeueAndAck re-adds the task and acknowledges the original atomically, so
// a failure leaves the original pending for XAUTOCLAIM.
func (q *RedisQueue) requeueAndAck(ctx context.Context, msgID string, task Task) error {
	pipe := q.client.TxPipeline()
	pipe.XAdd(ctx, q.addArgs(task))
	pipe.XAck(ctx, q.stream, q.group, msgID)
	pipe.XDel(ctx, q.stream, msgID)
	_, err := pipe.Exec(ctx)
	return err
}

func decodeTask(values map[string]any) (Task, bool) {
	tenantID, _ := values[fieldTenantID].(string)
	documentID, _ := values[fieldDocumentID].(string)
	if tenantID == "" || documentID == "" {
		return Task{}, false
	}
	task := Task{TenantID: tenantID, DocumentID: documentID}
	if raw, ok := values[fieldAttempt].(string); ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			task.Attempt = n
		}
	}
	return task, true
}

// sleep waits for d and reports false if ctx ended first
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
