// Package dispatcher runs the consume loop state machine: parse, fingerprint,
// dedup against the result store, route to a handler and publish the reply.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sravz-backend/internal/models"
	"sravz-backend/internal/resultstore"
	appconfig "sravz-backend/pkg/config"

	"github.com/go-playground/validator/v10"
)

// Publisher delivers a reply payload to a topic.
type Publisher interface {
	Publish(topic string, body []byte) error
}

// RouteProcessor is the router surface the dispatcher drives.
type RouteProcessor interface {
	Process(ctx context.Context, msg *models.Message) error
}

// Results is the result-store surface the dispatcher needs.
type Results interface {
	Find(ctx context.Context, key string) (*resultstore.Entry, error)
	Upsert(ctx context.Context, entry resultstore.Entry) error
	Claim(ctx context.Context, key, messageJSON string, now time.Time) (bool, error)
}

// Dispatcher coordinates one inbound bus message end to end. Every inbound
// message produces exactly one publish and one ack; malformed payloads are
// dropped with an ack.
type Dispatcher struct {
	cfg       *appconfig.AppConfig
	router    RouteProcessor
	results   Results
	publisher Publisher
	validate  *validator.Validate
	metrics   *Metrics

	mu       sync.Mutex
	inflight map[string]struct{}

	now func() time.Time
}

// New builds a Dispatcher.
func New(cfg *appconfig.AppConfig, router RouteProcessor, results Results, publisher Publisher) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		router:    router,
		results:   results,
		publisher: publisher,
		validate:  validator.New(),
		metrics:   NewMetrics(),
		inflight:  make(map[string]struct{}),
		now:       time.Now,
	}
}

// Metrics exposes the dispatcher counters.
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// Dispatch processes one raw bus payload. It never asks for a redelivery:
// all failure modes end in either a drop or a published error reply.
func (d *Dispatcher) Dispatch(ctx context.Context, body []byte) {
	d.metrics.Received.Add(1)

	var msg models.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		d.metrics.ParseFailures.Add(1)
		slog.Error("Dropping undecodable message", "error", err)
		return
	}
	if err := d.validate.Struct(&msg); err != nil {
		d.metrics.ParseFailures.Add(1)
		slog.Error("Dropping message missing required fields", "error", err)
		return
	}

	msg.ResetForProcessing(d.now())
	msg.Key = models.Fingerprint(&msg)

	logger := slog.With("key", msg.Key, "id", msg.ID, "cid", msg.CorrelationID)

	if d.replyFromCache(ctx, &msg, logger) {
		return
	}

	if !d.acquire(msg.Key) {
		d.replyInProgress(&msg, logger)
		return
	}
	defer d.release(msg.Key)

	claimed, err := d.results.Claim(ctx, msg.Key, mustJSON(&msg), d.now())
	if err != nil {
		logger.Warn("Result store claim failed, processing anyway", "error", err)
	} else if !claimed {
		d.replyInProgress(&msg, logger)
		return
	}

	hctx := ctx
	cancel := context.CancelFunc(func() {})
	if d.cfg.HandlerTimeout > 0 {
		hctx, cancel = context.WithTimeout(ctx, d.cfg.HandlerTimeout)
	}
	err = d.router.Process(hctx, &msg)
	cancel()

	if err != nil {
		msg.ErrorTag = "Error"
		msg.ExceptionMessage = err.Error()
		d.metrics.HandlerFailures.Add(1)
		logger.Error("Handler failed", "error", err)
	} else {
		d.metrics.HandlerSuccesses.Add(1)
	}

	payload := mustJSON(&msg)
	if err := d.results.Upsert(ctx, resultstore.Entry{
		Key:     msg.Key,
		Message: payload,
		Status:  resultstore.StatusDone,
		Date:    d.now().UTC(),
	}); err != nil {
		logger.Error("Failed to persist result", "error", err)
	}

	d.publish(msg.ReplyTopic, []byte(payload), logger)
}

// replyFromCache serves a fresh prior result. The stored message is replayed
// with the current request's correlation id.
func (d *Dispatcher) replyFromCache(ctx context.Context, msg *models.Message, logger *slog.Logger) bool {
	entry, err := d.results.Find(ctx, msg.Key)
	if err != nil {
		logger.Warn("Result store lookup failed, treating as miss", "error", err)
		return false
	}
	if entry == nil || !entry.Fresh(d.now(), resultstore.ResultTTL) {
		return false
	}

	var cached models.Message
	if err := json.Unmarshal([]byte(entry.Message), &cached); err != nil {
		logger.Warn("Cached result undecodable, treating as miss", "error", err)
		return false
	}
	cached.CorrelationID = msg.CorrelationID

	d.metrics.CacheHits.Add(1)
	logger.Info("Serving reply from result cache")
	d.publish(msg.ReplyTopic, []byte(mustJSON(&cached)), logger)
	return true
}

// replyInProgress notifies the requester that the same fingerprint is already
// being processed. The reply carries a notice, not an error tag.
func (d *Dispatcher) replyInProgress(msg *models.Message, logger *slog.Logger) {
	msg.ExceptionMessage = fmt.Sprintf(
		"Given message key: %s is being processed. Please check after sometime", msg.Key)
	d.metrics.InProgressSkips.Add(1)
	logger.Info("Duplicate in flight, replying with notice")
	d.publish(msg.ReplyTopic, []byte(mustJSON(msg)), logger)
}

func (d *Dispatcher) publish(topic string, body []byte, logger *slog.Logger) {
	if err := d.publisher.Publish(topic, body); err != nil {
		logger.Error("Failed to publish reply", "topic", topic, "error", err)
		return
	}
	d.metrics.Published.Add(1)
}

func (d *Dispatcher) acquire(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, held := d.inflight[key]; held {
		return false
	}
	d.inflight[key] = struct{}{}
	return true
}

func (d *Dispatcher) release(key string) {
	d.mu.Lock()
	delete(d.inflight, key)
	d.mu.Unlock()
}

// mustJSON marshals a message. The message type contains nothing that can
// fail to marshal, so an error here is a programming bug.
func mustJSON(msg *models.Message) string {
	out, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal message", "error", err)
		return "{}"
	}
	return string(out)
}
