package appointments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
	"github.com/m04kA/SMC-LifecycleService/internal/service/appointments/models"
	"github.com/m04kA/SMC-LifecycleService/internal/service/history"
	"github.com/m04kA/SMC-LifecycleService/internal/service/lifecycle"
	"github.com/m04kA/SMC-LifecycleService/internal/service/policy"
	"github.com/m04kA/SMC-LifecycleService/pkg/logger"
)

const (
	apptID         = "appt-1"
	clientID       = "client-1"
	professionalID = "pro-1"
)

var createdAt = time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)

func testAppointment(status domain.BackendStatus) *domain.Appointment {
	conv := "conv-1"
	return &domain.Appointment{
		ID:              apptID,
		Status:          status,
		ScheduledAt:     createdAt.Add(48 * time.Hour),
		EndAt:           createdAt.Add(49 * time.Hour),
		EstimatedCost:   decimal.NewNullDecimal(decimal.NewFromInt(3000)),
		ClientID:        clientID,
		ProfessionalID:  professionalID,
		ConversationRef: &conv,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

type fakeExecutor struct {
	mu        sync.Mutex
	view      *lifecycle.View
	err       error
	observers []lifecycle.TransitionObserver
	closed    []string
	targets   []domain.ClientStatus
}

func (f *fakeExecutor) current() (*lifecycle.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	v := *f.view
	v.Appointment = f.view.Appointment.Clone()
	return &v, nil
}

func (f *fakeExecutor) setView(v *lifecycle.View) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.view = v
}

func (f *fakeExecutor) Load(_ context.Context, _ string) (*lifecycle.View, error) {
	return f.current()
}

func (f *fakeExecutor) Current(_ context.Context, _ string) (*lifecycle.View, error) {
	return f.current()
}

func (f *fakeExecutor) AvailableTransitions(_ context.Context, _ string, role domain.Role) ([]policy.Transition, error) {
	v, err := f.current()
	if err != nil {
		return nil, err
	}
	return policy.AvailableTransitions(v.ClientStatus(), role), nil
}

func (f *fakeExecutor) History(_ context.Context, _ string) ([]history.Entry, error) {
	v, err := f.current()
	if err != nil {
		return nil, err
	}
	return history.Build(v.Appointment, v.Payment), nil
}

func (f *fakeExecutor) RequestTransition(_ context.Context, id string, target domain.ClientStatus, role domain.Role) (*lifecycle.View, error) {
	v, err := f.current()
	if err != nil {
		return nil, err
	}
	if _, ok := policy.Allows(v.ClientStatus(), role, target); !ok {
		return nil, &lifecycle.ForbiddenTransitionError{From: v.ClientStatus(), To: target, Role: role}
	}

	for _, o := range f.observers {
		o.TransitionStarted(id)
	}
	defer func() {
		for _, o := range f.observers {
			o.TransitionFinished(id)
		}
	}()

	backend, err := domain.ToBackendStatus(target)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.targets = append(f.targets, target)
	f.view.Appointment.Status = backend
	f.mu.Unlock()
	return f.current()
}

func (f *fakeExecutor) InitiatePayment(_ context.Context, _ string, _ domain.Role) (*lifecycle.PaymentInitiation, error) {
	v, err := f.current()
	if err != nil {
		return nil, err
	}
	return &lifecycle.PaymentInitiation{
		Payment: &domain.Payment{ID: "pay-1", Amount: decimal.NewFromInt(3000), Currency: "RUB", Status: domain.PaymentInitiated},
		View:    v,
	}, nil
}

func (f *fakeExecutor) RecordPayment(_ context.Context, _ string, ref string) (*lifecycle.View, error) {
	f.mu.Lock()
	f.view.Appointment.PaymentRef = &ref
	f.mu.Unlock()
	return f.current()
}

func (f *fakeExecutor) Close(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, id)
	return nil
}

func (f *fakeExecutor) AddObserver(o lifecycle.TransitionObserver) {
	f.observers = append(f.observers, o)
}

type fakeSyncer struct {
	readerID string
	fallback bool
	messages []domain.Message
	started  chan struct{}
	stopped  chan struct{}

	mu     sync.Mutex
	events []string
}

func newFakeSyncer(readerID string, fallback bool) *fakeSyncer {
	return &fakeSyncer{
		readerID: readerID,
		fallback: fallback,
		started:  make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (f *fakeSyncer) Run(ctx context.Context) {
	close(f.started)
	<-ctx.Done()
	close(f.stopped)
}

func (f *fakeSyncer) Messages() []domain.Message { return f.messages }

func (f *fakeSyncer) TransitionStarted(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "started:"+id)
}

func (f *fakeSyncer) TransitionFinished(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "finished:"+id)
}

func (f *fakeSyncer) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

type testEnv struct {
	service   *Service
	executors map[string]*fakeExecutor
	syncers   []*fakeSyncer
	mu        sync.Mutex
}

func newTestEnv(t *testing.T, status domain.BackendStatus, withMessaging bool) *testEnv {
	t.Helper()
	env := &testEnv{executors: make(map[string]*fakeExecutor)}

	newExecutor := func(sessionID string) Executor {
		ex := &fakeExecutor{view: &lifecycle.View{Appointment: testAppointment(status)}}
		env.executors[sessionID] = ex
		return ex
	}

	var newSyncer SyncerFactory
	if withMessaging {
		newSyncer = func(view *lifecycle.View, readerID string) MessageSyncer {
			env.mu.Lock()
			defer env.mu.Unlock()
			s := newFakeSyncer(readerID, view.FallbackMode)
			env.syncers = append(env.syncers, s)
			return s
		}
	}

	env.service = NewService(newExecutor, newSyncer, logger.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = env.service.Shutdown(ctx)
	})
	return env
}

func (e *testEnv) syncerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.syncers)
}

func (e *testEnv) syncer(i int) *fakeSyncer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncers[i]
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for syncer")
	}
}

var (
	asClient       = models.Caller{SessionID: "s-1", UserID: clientID, Role: domain.RoleClient}
	asProfessional = models.Caller{SessionID: "s-1", UserID: professionalID, Role: domain.RoleProfessional}
	asStranger     = models.Caller{SessionID: "s-1", UserID: "someone-else", Role: domain.RoleClient}
)

func TestGetAppointment_ReturnsViewForParticipant(t *testing.T) {
	env := newTestEnv(t, domain.BackendRequested, false)

	resp, err := env.service.GetAppointment(context.Background(), asClient, apptID)
	require.NoError(t, err)

	assert.Equal(t, apptID, resp.ID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "REQUESTED", resp.BackendStatus)
	require.NotNil(t, resp.EstimatedCost)
	assert.Equal(t, "3000.00", *resp.EstimatedCost)
	assert.False(t, resp.IsFallbackMode)
	assert.Equal(t, "2025-10-17T10:00:00Z", resp.ScheduledAt)
}

func TestGetAppointment_AccessDenied(t *testing.T) {
	env := newTestEnv(t, domain.BackendRequested, false)

	_, err := env.service.GetAppointment(context.Background(), asStranger, apptID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	// клиент не может выдавать себя за специалиста
	wrongRole := models.Caller{SessionID: "s-1", UserID: clientID, Role: domain.RoleProfessional}
	_, err = env.service.GetAppointment(context.Background(), wrongRole, apptID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestGetAppointment_SyntheticSkipsParticipantCheck(t *testing.T) {
	env := newTestEnv(t, domain.BackendRequested, false)

	_, err := env.service.GetTransitions(context.Background(), asClient, apptID)
	require.NoError(t, err)
	env.executors["s-1"].view.FallbackMode = true
	env.executors["s-1"].view.Synthetic = true

	resp, err := env.service.GetAppointment(context.Background(), asStranger, apptID)
	require.NoError(t, err)
	assert.True(t, resp.IsFallbackMode)
}

func TestAccess_FallbackOverRealDataIsStillChecked(t *testing.T) {
	env := newTestEnv(t, domain.BackendConfirmed, false)

	_, err := env.service.GetTransitions(context.Background(), asClient, apptID)
	require.NoError(t, err)
	env.executors["s-1"].view.FallbackMode = true

	intruder := models.Caller{SessionID: "s-1", UserID: "intruder", Role: domain.RoleProfessional}
	_, err = env.service.GetAppointment(context.Background(), intruder, apptID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = env.service.RequestTransition(context.Background(), intruder, apptID, "completed")
	assert.ErrorIs(t, err, ErrAccessDenied)

	// клиент не может завершить запись, назвавшись специалистом
	clientAsPro := models.Caller{SessionID: "s-1", UserID: clientID, Role: domain.RoleProfessional}
	_, err = env.service.RequestTransition(context.Background(), clientAsPro, apptID, "completed")
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Empty(t, env.executors["s-1"].targets)

	resp, err := env.service.GetAppointment(context.Background(), asClient, apptID)
	require.NoError(t, err)
	assert.True(t, resp.IsFallbackMode)
}

func TestGetAppointment_PropagatesExecutorErrors(t *testing.T) {
	env := newTestEnv(t, domain.BackendRequested, false)
	_, err := env.service.GetTransitions(context.Background(), asClient, apptID)
	require.NoError(t, err)

	env.executors["s-1"].err = lifecycle.ErrAppointmentNotFound

	_, err = env.service.GetAppointment(context.Background(), asClient, apptID)
	assert.ErrorIs(t, err, lifecycle.ErrAppointmentNotFound)
}

func TestSessions_HaveSeparateExecutors(t *testing.T) {
	env := newTestEnv(t, domain.BackendRequested, false)

	other := asClient
	other.SessionID = "s-2"

	_, err := env.service.GetAppointment(context.Background(), asClient, apptID)
	require.NoError(t, err)
	_, err = env.service.GetAppointment(context.Background(), other, apptID)
	require.NoError(t, err)
	_, err = env.service.GetAppointment(context.Background(), asClient, apptID)
	require.NoError(t, err)

	assert.Len(t, env.executors, 2)
	assert.Len(t, env.executors["s-1"].observers, 1)
}

func TestGetTransitions_ByRole(t *testing.T) {
	env := newTestEnv(t, domain.BackendConfirmed, false)

	resp, err := env.service.GetTransitions(context.Background(), asProfessional, apptID)
	require.NoError(t, err)

	assert.Equal(t, "confirmed", resp.CurrentStatus)
	assert.Equal(t, "professional", resp.Role)
	require.Len(t, resp.Transitions, 2)
	assert.Equal(t, "completed", resp.Transitions[0].TargetStatus)
	assert.Equal(t, "cancelled", resp.Transitions[1].TargetStatus)
}

func TestRequestTransition(t *testing.T) {
	env := newTestEnv(t, domain.BackendRequested, false)

	resp, err := env.service.RequestTransition(context.Background(), asProfessional, apptID, " confirmed ")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", resp.Status)
	assert.Equal(t, []domain.ClientStatus{domain.ClientConfirmed}, env.executors["s-1"].targets)
}

func TestRequestTransition_Rejections(t *testing.T) {
	env := newTestEnv(t, domain.BackendRequested, false)

	_, err := env.service.RequestTransition(context.Background(), asClient, apptID, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.service.RequestTransition(context.Background(), asClient, apptID, "completed")
	assert.ErrorIs(t, err, lifecycle.ErrForbiddenTransition)

	_, err = env.service.RequestTransition(context.Background(), asStranger, apptID, "cancelled")
	assert.ErrorIs(t, err, ErrAccessDenied)

	assert.Empty(t, env.executors["s-1"].targets)
}

func TestGetHistory(t *testing.T) {
	env := newTestEnv(t, domain.BackendConfirmed, false)

	resp, err := env.service.GetHistory(context.Background(), asClient, apptID)
	require.NoError(t, err)

	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "pending", resp.Entries[0].Status)
	assert.Equal(t, "confirmed", resp.Entries[1].Status)
	assert.False(t, resp.IsFallbackMode)
}

func TestPayments(t *testing.T) {
	env := newTestEnv(t, domain.BackendConfirmed, false)

	initiated, err := env.service.InitiatePayment(context.Background(), asClient, apptID)
	require.NoError(t, err)
	assert.Equal(t, "pay-1", initiated.Payment.ID)
	assert.Equal(t, "3000.00", initiated.Payment.Amount)
	assert.Equal(t, "confirmed", initiated.Appointment.Status)

	resp, err := env.service.RecordPayment(context.Background(), asClient, apptID, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, "paid", resp.Status)
	require.NotNil(t, resp.PaymentRef)
	assert.Equal(t, "pay-1", *resp.PaymentRef)
}

func TestSyncer_StartedOncePerOpenAppointment(t *testing.T) {
	env := newTestEnv(t, domain.BackendRequested, true)

	_, err := env.service.GetAppointment(context.Background(), asClient, apptID)
	require.NoError(t, err)
	_, err = env.service.GetAppointment(context.Background(), asClient, apptID)
	require.NoError(t, err)

	require.Equal(t, 1, env.syncerCount())
	s := env.syncer(0)
	waitClosed(t, s.started)
	assert.Equal(t, clientID, s.readerID)
}

func TestSyncer_NotStartedWithoutConversation(t *testing.T) {
	env := newTestEnv(t, domain.BackendRequested, true)
	_, err := env.service.GetTransitions(context.Background(), asClient, apptID)
	require.NoError(t, err)
	env.executors["s-1"].view.Appointment.ConversationRef = nil

	_, err = env.service.GetAppointment(context.Background(), asClient, apptID)
	require.NoError(t, err)
	assert.Equal(t, 0, env.syncerCount())

	_, err = env.service.GetMessages(context.Background(), asClient, apptID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestSyncer_PausedDuringTransition(t *testing.T) {
	env := newTestEnv(t, domain.BackendRequested, true)

	_, err := env.service.GetAppointment(context.Background(), asClient, apptID)
	require.NoError(t, err)
	_, err = env.service.RequestTransition(context.Background(), asClient, apptID, "cancelled")
	require.NoError(t, err)

	assert.Equal(t, []string{"started:" + apptID, "finished:" + apptID}, env.syncer(0).recorded())
}

func TestSyncer_RestartedWhenModeChanges(t *testing.T) {
	env := newTestEnv(t, domain.BackendRequested, true)

	_, err := env.service.GetAppointment(context.Background(), asClient, apptID)
	require.NoError(t, err)

	live := env.executors["s-1"].view
	fallbackView := *live
	fallbackView.FallbackMode = true
	env.executors["s-1"].setView(&fallbackView)

	_, err = env.service.GetAppointment(context.Background(), asClient, apptID)
	require.NoError(t, err)

	require.Equal(t, 2, env.syncerCount())
	waitClosed(t, env.syncer(0).stopped)
	assert.True(t, env.syncer(1).fallback)
}

func TestGetMessages(t *testing.T) {
	env := newTestEnv(t, domain.BackendRequested, true)

	_, err := env.service.GetAppointment(context.Background(), asClient, apptID)
	require.NoError(t, err)
	env.syncer(0).messages = []domain.Message{
		{ID: "m-1", SenderID: professionalID, Body: "Здравствуйте", SentAt: createdAt},
		{ID: "m-2", SenderID: clientID, Body: "Добрый день", SentAt: createdAt.Add(time.Minute)},
	}

	resp, err := env.service.GetMessages(context.Background(), asClient, apptID)
	require.NoError(t, err)

	assert.Equal(t, "conv-1", resp.ConversationID)
	require.Len(t, resp.Messages, 2)
	assert.True(t, resp.Messages[0].Incoming)
	assert.False(t, resp.Messages[1].Incoming)
}

func TestGetMessages_MessagingDisabled(t *testing.T) {
	env := newTestEnv(t, domain.BackendRequested, false)

	resp, err := env.service.GetMessages(context.Background(), asClient, apptID)
	require.NoError(t, err)
	assert.Empty(t, resp.Messages)
}

func TestCloseView_StopsSyncerAndClosesExecutorView(t *testing.T) {
	env := newTestEnv(t, domain.BackendRequested, true)

	_, err := env.service.GetAppointment(context.Background(), asClient, apptID)
	require.NoError(t, err)

	require.NoError(t, env.service.CloseView(context.Background(), asClient, apptID))
	waitClosed(t, env.syncer(0).stopped)
	assert.Equal(t, []string{apptID}, env.executors["s-1"].closed)

	// повторное открытие запускает новую синхронизацию
	_, err = env.service.GetAppointment(context.Background(), asClient, apptID)
	require.NoError(t, err)
	assert.Equal(t, 2, env.syncerCount())
}

func TestCloseView_UnknownSession(t *testing.T) {
	env := newTestEnv(t, domain.BackendRequested, true)
	assert.NoError(t, env.service.CloseView(context.Background(), asClient, apptID))
	assert.Empty(t, env.executors)
}

func TestShutdown_StopsAllSyncers(t *testing.T) {
	env := newTestEnv(t, domain.BackendRequested, true)

	other := asClient
	other.SessionID = "s-2"
	_, err := env.service.GetAppointment(context.Background(), asClient, apptID)
	require.NoError(t, err)
	_, err = env.service.GetAppointment(context.Background(), other, apptID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, env.service.Shutdown(ctx))

	waitClosed(t, env.syncer(0).stopped)
	waitClosed(t, env.syncer(1).stopped)

	// после остановки новые синхронизаторы не запускаются
	third := asClient
	third.SessionID = "s-3"
	_, err = env.service.GetAppointment(context.Background(), third, apptID)
	require.NoError(t, err)
	assert.Equal(t, 2, env.syncerCount())
}

func TestShutdown_Timeout(t *testing.T) {
	env := newTestEnv(t, domain.BackendRequested, false)
	env.service.wg.Add(1)
	defer env.service.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := env.service.Shutdown(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
