// Package messaging синхронизирует переписку по записи.
//
// Синхронизатор периодически опрашивает сервис сообщений, отбирает новые
// сообщения по идентификатору, отмечает входящие прочитанными и рассылает
// уведомления о сообщениях, пришедших после первого опроса.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
)

const (
	notificationTitle   = "Новое сообщение"
	notificationBodyMax = 120
)

// Syncer синхронизатор переписки одной записи для одного пользователя
type Syncer struct {
	client       MessagingClient
	notifier     Notifier
	metrics      Metrics
	timeProvider TimeProvider
	logger       Logger

	appointmentID  string
	conversationID string
	readerID       string
	interval       time.Duration

	mu         sync.Mutex
	messages   []domain.Message
	seen       map[string]int
	primed     bool
	paused     int
	generation uint64
}

// NewSyncer создает синхронизатор переписки conversationID записи appointmentID
func NewSyncer(
	client MessagingClient,
	notifier Notifier,
	appointmentID string,
	conversationID string,
	readerID string,
	interval time.Duration,
	logger Logger,
) *Syncer {
	if interval <= 0 {
		interval = domain.DefaultMessagePollInterval
	}
	return &Syncer{
		client:         client,
		notifier:       notifier,
		metrics:        noopMetrics{},
		timeProvider:   &RealTimeProvider{},
		logger:         logger,
		appointmentID:  appointmentID,
		conversationID: conversationID,
		readerID:       readerID,
		interval:       interval,
		seen:           make(map[string]int),
	}
}

// SetMetrics подключает метрики
func (s *Syncer) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// Run опрашивает сервис сразу и затем каждые interval до отмены ctx
func (s *Syncer) Run(ctx context.Context) {
	s.logger.Info("MessageSync: started appointment=%s conversation=%s interval=%s",
		s.appointmentID, s.conversationID, s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("MessageSync: stopped appointment=%s", s.appointmentID)
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Syncer) runOnce(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	n, err := s.Poll(pollCtx)
	switch {
	case err == nil:
		if n > 0 {
			s.logger.Info("MessageSync: appointment=%s new messages=%d", s.appointmentID, n)
		}
	case errors.Is(err, ErrStalePoll), ctx.Err() != nil:
		// опрос пересёкся с переходом или синхронизатор останавливается
	default:
		s.logger.Warn("MessageSync: appointment=%s: %v", s.appointmentID, err)
	}
}

// Poll выполняет один опрос и возвращает число новых сообщений.
// На паузе опрос пропускается.
func (s *Syncer) Poll(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.paused > 0 {
		s.mu.Unlock()
		return 0, nil
	}
	gen := s.generation
	s.mu.Unlock()

	fetched, err := s.client.ListMessages(ctx, s.conversationID)
	if err != nil {
		return 0, fmt.Errorf("%w: Poll - list messages: %v", ErrSyncFailed, err)
	}

	s.mu.Lock()
	if s.paused > 0 || s.generation != gen {
		s.mu.Unlock()
		return 0, ErrStalePoll
	}
	fresh := s.merge(fetched)
	notify := s.primed
	s.primed = true
	s.mu.Unlock()

	incoming := s.incomingUnread(fresh)
	s.markRead(ctx, incoming)

	if notify {
		for _, m := range incoming {
			err := s.notifier.Notify(ctx, s.notification(m))
			s.metrics.RecordNotification(err)
			if err != nil {
				s.logger.Warn("MessageSync: failed to notify user=%s message=%s: %v", s.readerID, m.ID, err)
			}
		}
	}

	s.metrics.RecordMessages(len(fresh))
	return len(fresh), nil
}

// merge добавляет новые сообщения и обновляет отметки о прочтении известных.
// Вызывается под s.mu.
func (s *Syncer) merge(fetched []domain.Message) []domain.Message {
	var fresh []domain.Message
	for _, m := range fetched {
		if idx, ok := s.seen[m.ID]; ok {
			if m.ReadAt != nil && s.messages[idx].ReadAt == nil {
				readAt := *m.ReadAt
				s.messages[idx].ReadAt = &readAt
			}
			continue
		}
		s.seen[m.ID] = len(s.messages)
		s.messages = append(s.messages, m)
		fresh = append(fresh, m)
	}

	if len(fresh) > 0 {
		sort.SliceStable(s.messages, func(i, j int) bool {
			return s.messages[i].SentAt.Before(s.messages[j].SentAt)
		})
		for i, m := range s.messages {
			s.seen[m.ID] = i
		}
	}
	return fresh
}

func (s *Syncer) incomingUnread(messages []domain.Message) []domain.Message {
	var out []domain.Message
	for _, m := range messages {
		if m.SenderID != s.readerID && !m.IsRead() {
			out = append(out, m)
		}
	}
	return out
}

// markRead отмечает входящие прочитанными у сервиса и локально
func (s *Syncer) markRead(ctx context.Context, incoming []domain.Message) {
	if len(incoming) == 0 {
		return
	}

	ids := make([]string, len(incoming))
	for i, m := range incoming {
		ids[i] = m.ID
	}

	if err := s.client.MarkRead(ctx, s.conversationID, s.readerID, ids); err != nil {
		s.logger.Warn("MessageSync: failed to mark %d messages read conversation=%s: %v", len(ids), s.conversationID, err)
		return
	}

	now := s.timeProvider.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if idx, ok := s.seen[id]; ok && s.messages[idx].ReadAt == nil {
			readAt := now
			s.messages[idx].ReadAt = &readAt
		}
	}
}

func (s *Syncer) notification(m domain.Message) domain.Notification {
	return domain.Notification{
		UserID:         s.readerID,
		ConversationID: s.conversationID,
		MessageID:      m.ID,
		Title:          notificationTitle,
		Body:           truncate(m.Body, notificationBodyMax),
		CreatedAt:      m.SentAt,
	}
}

// Messages возвращает копию известных сообщений, упорядоченных по времени отправки
func (s *Syncer) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m
		if m.ReadAt != nil {
			readAt := *m.ReadAt
			out[i].ReadAt = &readAt
		}
	}
	return out
}

// Pause приостанавливает опрос. Ответ опроса, начатого до паузы, будет отброшен.
func (s *Syncer) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused++
	s.generation++
}

// Resume снимает одну паузу
func (s *Syncer) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused > 0 {
		s.paused--
	}
}

// TransitionStarted ставит опрос на паузу на время перехода по своей записи
func (s *Syncer) TransitionStarted(appointmentID string) {
	if appointmentID == s.appointmentID {
		s.Pause()
	}
}

// TransitionFinished снимает паузу после перехода
func (s *Syncer) TransitionFinished(appointmentID string) {
	if appointmentID == s.appointmentID {
		s.Resume()
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
