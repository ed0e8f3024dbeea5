package messaging

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
	"github.com/m04kA/SMC-LifecycleService/pkg/logger"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type stubMessaging struct {
	mu        sync.Mutex
	messages  []domain.Message
	listErr   error
	markErr   error
	listCalls int
	marked    [][]string
	onList    func()
}

func (s *stubMessaging) ListMessages(_ context.Context, _ string) ([]domain.Message, error) {
	s.mu.Lock()
	s.listCalls++
	hook := s.onList
	s.mu.Unlock()

	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

func (s *stubMessaging) MarkRead(_ context.Context, _, _ string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	s.marked = append(s.marked, ids)
	return nil
}

func (s *stubMessaging) add(m domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

func (s *stubMessaging) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (n *stubNotifier) Notify(_ context.Context, notification domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notification)
	return nil
}

func message(id, sender string, minutesAgo int) domain.Message {
	return domain.Message{
		ID:             id,
		ConversationID: "conv-1",
		SenderID:       sender,
		Body:           "сообщение " + id,
		SentAt:         testNow.Add(-time.Duration(minutesAgo) * time.Minute),
	}
}

func newTestSyncer(client *stubMessaging, notifier *stubNotifier) *Syncer {
	s := NewSyncer(client, notifier, "appt-1", "conv-1", "me", time.Minute, logger.NewNop())
	s.timeProvider = &fakeClock{now: testNow}
	return s
}

func TestPoll_FirstPollMarksIncomingReadWithoutNotifications(t *testing.T) {
	client := &stubMessaging{messages: []domain.Message{
		message("m2", "other", 10),
		message("m1", "other", 30),
		message("m3", "me", 5),
	}}
	notifier := &stubNotifier{}
	s := newTestSyncer(client, notifier)

	n, err := s.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Len(t, client.marked, 1)
	assert.ElementsMatch(t, []string{"m1", "m2"}, client.marked[0])
	assert.Empty(t, notifier.sent)

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, "m3", msgs[2].ID)
	require.NotNil(t, msgs[0].ReadAt)
	assert.True(t, testNow.Equal(*msgs[0].ReadAt))
	assert.Nil(t, msgs[2].ReadAt)
}

func TestPoll_DeduplicatesAndNotifiesNewIncoming(t *testing.T) {
	client := &stubMessaging{messages: []domain.Message{message("m1", "other", 30)}}
	notifier := &stubNotifier{}
	s := newTestSyncer(client, notifier)

	_, err := s.Poll(context.Background())
	require.NoError(t, err)

	client.add(message("m2", "other", 1))
	client.add(message("m3", "me", 0))

	n, err := s.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "m2", notifier.sent[0].MessageID)
	assert.Equal(t, "me", notifier.sent[0].UserID)
	assert.Equal(t, "conv-1", notifier.sent[0].ConversationID)
	assert.Equal(t, notificationTitle, notifier.sent[0].Title)

	n, err = s.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, s.Messages(), 3)
	assert.Len(t, notifier.sent, 1)
}

func TestPoll_PropagatesReadStateOfOwnMessages(t *testing.T) {
	client := &stubMessaging{messages: []domain.Message{message("m1", "me", 10)}}
	s := newTestSyncer(client, &stubNotifier{})

	_, err := s.Poll(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s.Messages()[0].ReadAt)

	readAt := testNow.Add(-time.Minute)
	client.mu.Lock()
	client.messages[0].ReadAt = &readAt
	client.mu.Unlock()

	_, err = s.Poll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s.Messages()[0].ReadAt)
	assert.True(t, readAt.Equal(*s.Messages()[0].ReadAt))
}

func TestPoll_SkippedWhilePaused(t *testing.T) {
	client := &stubMessaging{messages: []domain.Message{message("m1", "other", 10)}}
	s := newTestSyncer(client, &stubNotifier{})

	s.TransitionStarted("appt-1")
	n, err := s.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, client.calls())

	s.TransitionFinished("appt-1")
	n, err = s.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPoll_OtherAppointmentTransitionDoesNotPause(t *testing.T) {
	client := &stubMessaging{messages: []domain.Message{message("m1", "other", 10)}}
	s := newTestSyncer(client, &stubNotifier{})

	s.TransitionStarted("appt-2")
	n, err := s.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPoll_DropsResultThatStraddlesTransition(t *testing.T) {
	client := &stubMessaging{messages: []domain.Message{message("m1", "other", 10)}}
	notifier := &stubNotifier{}
	s := newTestSyncer(client, notifier)

	client.onList = func() { s.TransitionStarted("appt-1") }

	n, err := s.Poll(context.Background())
	assert.ErrorIs(t, err, ErrStalePoll)
	assert.Equal(t, 0, n)
	assert.Empty(t, s.Messages())
	assert.Empty(t, client.marked)

	client.mu.Lock()
	client.onList = nil
	client.mu.Unlock()
	s.TransitionFinished("appt-1")

	n, err = s.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	// первый успешный опрос не рассылает уведомления
	assert.Empty(t, notifier.sent)
}

func TestPoll_ListFailure(t *testing.T) {
	client := &stubMessaging{listErr: errors.New("connection refused")}
	s := newTestSyncer(client, &stubNotifier{})

	_, err := s.Poll(context.Background())
	assert.ErrorIs(t, err, ErrSyncFailed)
}

func TestPoll_MarkReadFailureKeepsMessagesUnread(t *testing.T) {
	client := &stubMessaging{markErr: errors.New("timeout")}
	notifier := &stubNotifier{}
	s := newTestSyncer(client, notifier)

	_, err := s.Poll(context.Background())
	require.NoError(t, err)

	client.add(message("m1", "other", 1))
	n, err := s.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Nil(t, s.Messages()[0].ReadAt)
	assert.Len(t, notifier.sent, 1)
}

func TestRun_PollsUntilCancelled(t *testing.T) {
	client := &stubMessaging{messages: []domain.Message{message("m1", "other", 10)}}
	s := NewSyncer(client, &stubNotifier{}, "appt-1", "conv-1", "me", 10*time.Millisecond, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return client.calls() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.Len(t, s.Messages(), 1)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "коротко", truncate("коротко", 10))

	long := strings.Repeat("я", 200)
	got := truncate(long, notificationBodyMax)
	assert.Equal(t, notificationBodyMax, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}
