package notify

import (
	"context"
	"errors"
	"time"

	"cabwatch/internal/notify/platforms"

	"github.com/rs/zerolog/log"
)

var errCircuitOpen = errors.New("circuit_open")

type breakerState struct {
	consecutiveFailures int
	openUntil           time.Time
}

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case job := <-m.dispatchCh:
			metricNotifyQueueLen.Set(int64(len(m.dispatchCh)))
			m.processJob(ctx, job)
		}
	}
}

func (m *Manager) processJob(ctx context.Context, job pushJob) {
	if err := m.beforeSend(job.key(), time.Now()); err != nil {
		metricNotifyCircuitOpenTotal.Add(1)
		if !m.retryOrDrop(job, err) {
			m.markTopicDropped(job)
		}
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	err := m.adapter.Send(sendCtx, job.Message)
	cancel()
	if err != nil {
		metricNotifyFailedTotal.Add(1)
		log.Warn().Err(err).
			Str("channel", job.Message.ChannelID).
			Int("attempt", job.Attempt).
			Bool("topic", job.isTopic()).
			Msg("notify send failed")
		m.afterFailure(job.key(), time.Now())
		if !m.retryOrDrop(job, err) {
			m.markTopicDropped(job)
		}
		return
	}

	metricNotifySentTotal.Add(1)
	m.afterSuccess(job.key())
	m.markTopicDelivered(job)
}

func (m *Manager) retryOrDrop(job pushJob, err error) bool {
	if job.Attempt >= m.cfg.RetryMax {
		metricNotifyRetryDroppedTotal.Add(1)
		log.Error().Err(err).Str("channel", job.Message.ChannelID).Msg("notify dropped after retries")
		return false
	}
	job.Attempt++
	metricNotifyRetryTotal.Add(1)
	delay := m.cfg.RetryBase * time.Duration(1<<(job.Attempt-1))
	var statusErr *platforms.StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > delay {
		delay = statusErr.RetryAfter
	}
	m.scheduleRetry(job, delay)
	return true
}

func (m *Manager) scheduleRetry(job pushJob, delay time.Duration) {
	time.AfterFunc(delay, func() {
		select {
		case <-m.done:
		case m.dispatchCh <- job:
			metricNotifyQueueLen.Set(int64(len(m.dispatchCh)))
		}
	})
}

func (m *Manager) beforeSend(key string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.breakerByKey[key]
	if !state.openUntil.IsZero() && now.Before(state.openUntil) {
		return errCircuitOpen
	}
	return nil
}

func (m *Manager) afterFailure(key string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.breakerByKey[key]
	state.consecutiveFailures++
	if state.consecutiveFailures >= m.cfg.FailureThreshold {
		state.openUntil = now.Add(m.cfg.CircuitOpenDuration)
		state.consecutiveFailures = 0
	}
	m.breakerByKey[key] = state
}

func (m *Manager) afterSuccess(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.breakerByKey, key)
}
