package emailsvc

import (
	"context"
	"sync"
	"time"

	"github.com/wisonline/woec/core"
)

const retryQueueSize = 100

// RetryQueue re-sends messages whose first delivery failed, backing off exponentially
// between attempts. Messages still undelivered after the last attempt are logged and dropped.
type RetryQueue struct {
	svc      core.EmailService
	logger   core.Logger
	attempts int
	backoff  time.Duration
	timeout  time.Duration

	queue    chan *core.EmailMessage
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

var _ core.EmailRetrier = (*RetryQueue)(nil)

func NewRetryQueue(svc core.EmailService, conf *core.Config, logger core.Logger) *RetryQueue {
	return &RetryQueue{
		svc:      svc,
		logger:   logger,
		attempts: conf.Email.RetryAttempts,
		backoff:  conf.Email.RetryBackoff,
		timeout:  conf.Email.SendTimeout,
		queue:    make(chan *core.EmailMessage, retryQueueSize),
		done:     make(chan struct{}),
	}
}

// Start runs the queue worker until Stop is called.
func (q *RetryQueue) Start() {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-q.done:
				return
			case msg := <-q.queue:
				q.wg.Add(1)
				go func() {
					defer q.wg.Done()
					q.deliver(msg)
				}()
			}
		}
	}()
}

// Stop abandons pending retries and waits for in-flight ones to return.
func (q *RetryQueue) Stop() {
	q.stopOnce.Do(func() { close(q.done) })
	q.wg.Wait()
}

// Retry enqueues msg without blocking; msg is dropped if the queue is full.
func (q *RetryQueue) Retry(msg *core.EmailMessage) {
	if q.attempts <= 0 {
		return
	}
	select {
	case q.queue <- msg:
	default:
		q.logger.Error("email retry queue full, dropping message", logFields(msg))
	}
}

func (q *RetryQueue) deliver(msg *core.EmailMessage) {
	wait := q.backoff
	for attempt := 1; attempt <= q.attempts; attempt++ {
		timer := time.NewTimer(wait)
		select {
		case <-q.done:
			timer.Stop()
			q.logger.Warn("email retry abandoned", logFields(msg))
			return
		case <-timer.C:
		}

		err := q.send(msg)
		if err == nil {
			q.logger.Info("email delivered on retry", logFields(msg, "attempt", attempt))
			return
		}
		q.logger.Warn("email retry failed", err, logFields(msg, "attempt", attempt))
		wait *= 2
	}
	q.logger.Error("email undeliverable", logFields(msg, "attempts", q.attempts))
}

func (q *RetryQueue) send(msg *core.EmailMessage) error {
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	return q.svc.Send(ctx, msg)
}

func logFields(msg *core.EmailMessage, kv ...interface{}) map[string]interface{} {
	fields := map[string]interface{}{"template": msg.TemplateName, "to": joinAddresses(msg.To)}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			fields[k] = kv[i+1]
		}
	}
	return fields
}
