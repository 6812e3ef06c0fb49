package notify

import (
	"context"
	"time"

	"cabwatch/internal/notify/platforms"
)

// topicState coalesces topic edits per channel. Only the latest pending
// text is sent.
type topicState struct {
	pending  string
	sent     string
	dirty    bool
	inflight bool
}

func (m *Manager) queueTopic(channelID, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.topicByChannel[channelID]
	if st == nil {
		st = &topicState{}
		m.topicByChannel[channelID] = st
	}
	if !st.dirty && !st.inflight && st.sent == text {
		metricNotifyTopicSkippedTotal.Add(1)
		return
	}
	st.pending = text
	st.dirty = true
}

func (m *Manager) flushTopicsLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.TopicFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
			m.FlushTopics()
		}
	}
}

// FlushTopics enqueues every dirty topic that is not already in flight.
func (m *Manager) FlushTopics() {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	var jobs []pushJob
	m.mu.Lock()
	for id, st := range m.topicByChannel {
		if !st.dirty || st.inflight {
			continue
		}
		st.dirty = false
		st.inflight = true
		jobs = append(jobs, pushJob{Message: platforms.Message{Kind: platforms.KindTopic, ChannelID: id, Content: st.pending}})
	}
	m.mu.Unlock()

	for _, job := range jobs {
		if !m.enqueue(job) {
			metricNotifyDroppedTotal.Add(1)
			m.markTopicDropped(job)
		}
	}
}

func (m *Manager) markTopicDelivered(job pushJob) {
	if !job.isTopic() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.topicByChannel[job.key()]
	if st == nil {
		return
	}
	st.inflight = false
	st.sent = job.Message.Content
	if st.pending == st.sent {
		st.dirty = false
	}
}

func (m *Manager) markTopicDropped(job pushJob) {
	if !job.isTopic() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.topicByChannel[job.key()]
	if st == nil {
		return
	}
	st.inflight = false
	st.dirty = true
}
