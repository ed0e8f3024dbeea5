// Package appointments связывает HTTP-слой с исполнителями переходов.
//
// Сервис держит по исполнителю на сессию и по синхронизатору переписки
// на каждую открытую запись сессии.
package appointments

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
	"github.com/m04kA/SMC-LifecycleService/internal/service/appointments/models"
	"github.com/m04kA/SMC-LifecycleService/internal/service/lifecycle"
)

type syncHandle struct {
	syncer   MessageSyncer
	cancel   context.CancelFunc
	readerID string
	fallback bool
}

// session исполнитель сессии и синхронизаторы её открытых записей
type session struct {
	id       string
	executor Executor

	mu      sync.Mutex
	syncers map[string]*syncHandle
}

// TransitionStarted приостанавливает опрос переписки записи на время перехода
func (s *session) TransitionStarted(appointmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.syncers[appointmentID]; ok {
		h.syncer.TransitionStarted(appointmentID)
	}
}

// TransitionFinished возобновляет опрос переписки записи
func (s *session) TransitionFinished(appointmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.syncers[appointmentID]; ok {
		h.syncer.TransitionFinished(appointmentID)
	}
}

// Service сервис записей, разделённый по сессиям
type Service struct {
	newExecutor ExecutorFactory
	newSyncer   SyncerFactory
	logger      Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

// NewService создает сервис. newSyncer может быть nil, тогда переписка не синхронизируется.
func NewService(newExecutor ExecutorFactory, newSyncer SyncerFactory, logger Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		newExecutor: newExecutor,
		newSyncer:   newSyncer,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		sessions:    make(map[string]*session),
	}
}

// GetAppointment загружает запись и открывает её представление в сессии
func (s *Service) GetAppointment(ctx context.Context, caller models.Caller, appointmentID string) (*models.AppointmentResponse, error) {
	s.logger.Info("GetAppointment: session=%s appointment=%s user=%s", caller.SessionID, appointmentID, caller.UserID)

	sess := s.session(caller.SessionID)
	view, err := sess.executor.Load(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAccess(view, caller); err != nil {
		return nil, err
	}

	s.startSyncer(sess, view, caller.UserID)
	return models.FromView(view), nil
}

// GetTransitions возвращает переходы, доступные вызывающему
func (s *Service) GetTransitions(ctx context.Context, caller models.Caller, appointmentID string) (*models.TransitionsResponse, error) {
	sess, view, err := s.authorize(ctx, caller, appointmentID)
	if err != nil {
		return nil, err
	}

	transitions, err := sess.executor.AvailableTransitions(ctx, appointmentID, caller.Role)
	if err != nil {
		return nil, err
	}

	return &models.TransitionsResponse{
		AppointmentID: appointmentID,
		CurrentStatus: string(view.ClientStatus()),
		Role:          string(caller.Role),
		Transitions:   models.FromTransitions(transitions),
	}, nil
}

// RequestTransition переводит запись в клиентский статус target
func (s *Service) RequestTransition(ctx context.Context, caller models.Caller, appointmentID, target string) (*models.AppointmentResponse, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("%w: empty target status", ErrInvalidInput)
	}

	sess, _, err := s.authorize(ctx, caller, appointmentID)
	if err != nil {
		return nil, err
	}

	view, err := sess.executor.RequestTransition(ctx, appointmentID, domain.ClientStatus(target), caller.Role)
	if err != nil {
		return nil, err
	}

	s.logger.Info("RequestTransition: session=%s appointment=%s status=%s fallback=%t",
		caller.SessionID, appointmentID, view.ClientStatus(), view.FallbackMode)
	return models.FromView(view), nil
}

// GetHistory возвращает восстановленную историю записи
func (s *Service) GetHistory(ctx context.Context, caller models.Caller, appointmentID string) (*models.HistoryResponse, error) {
	sess, view, err := s.authorize(ctx, caller, appointmentID)
	if err != nil {
		return nil, err
	}

	entries, err := sess.executor.History(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	return &models.HistoryResponse{
		AppointmentID:  appointmentID,
		Entries:        models.FromHistory(entries),
		IsFallbackMode: view.FallbackMode,
	}, nil
}

// InitiatePayment запускает оплату подтверждённой записи
func (s *Service) InitiatePayment(ctx context.Context, caller models.Caller, appointmentID string) (*models.PaymentInitiationResponse, error) {
	sess, _, err := s.authorize(ctx, caller, appointmentID)
	if err != nil {
		return nil, err
	}

	res, err := sess.executor.InitiatePayment(ctx, appointmentID, caller.Role)
	if err != nil {
		return nil, err
	}

	return &models.PaymentInitiationResponse{
		Payment:     models.FromDomainPayment(res.Payment),
		Appointment: models.FromView(res.View),
	}, nil
}

// RecordPayment прикрепляет платёж paymentRef к записи
func (s *Service) RecordPayment(ctx context.Context, caller models.Caller, appointmentID, paymentRef string) (*models.AppointmentResponse, error) {
	sess, _, err := s.authorize(ctx, caller, appointmentID)
	if err != nil {
		return nil, err
	}

	view, err := sess.executor.RecordPayment(ctx, appointmentID, paymentRef)
	if err != nil {
		return nil, err
	}
	return models.FromView(view), nil
}

// GetMessages возвращает синхронизированную переписку по записи
func (s *Service) GetMessages(ctx context.Context, caller models.Caller, appointmentID string) (*models.MessagesResponse, error) {
	sess, view, err := s.authorize(ctx, caller, appointmentID)
	if err != nil {
		return nil, err
	}
	if view.Appointment.ConversationRef == nil {
		return nil, ErrConversationNotFound
	}

	resp := &models.MessagesResponse{
		AppointmentID:  appointmentID,
		ConversationID: *view.Appointment.ConversationRef,
		Messages:       []models.MessageResponse{},
	}

	h := s.startSyncer(sess, view, caller.UserID)
	if h == nil {
		return resp, nil
	}
	resp.Messages = models.FromMessages(h.syncer.Messages(), h.readerID)
	return resp, nil
}

// CloseView закрывает представление записи: останавливает синхронизацию
// переписки и отбрасывает ответы, пришедшие после закрытия.
func (s *Service) CloseView(ctx context.Context, caller models.Caller, appointmentID string) error {
	s.logger.Info("CloseView: session=%s appointment=%s", caller.SessionID, appointmentID)

	s.mu.Lock()
	sess, ok := s.sessions[caller.SessionID]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	sess.mu.Lock()
	if h, ok := sess.syncers[appointmentID]; ok {
		h.cancel()
		delete(sess.syncers, appointmentID)
	}
	sess.mu.Unlock()

	return sess.executor.Close(ctx, appointmentID)
}

// Shutdown останавливает все синхронизаторы и ждёт их завершения
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Shutdown: all message syncers stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("appointments: shutdown - %w", ctx.Err())
	}
}

// authorize возвращает сессию и известное состояние записи, если вызывающий её участник
func (s *Service) authorize(ctx context.Context, caller models.Caller, appointmentID string) (*session, *lifecycle.View, error) {
	sess := s.session(caller.SessionID)
	view, err := sess.executor.Current(ctx, appointmentID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkAccess(view, caller); err != nil {
		return nil, nil, err
	}
	return sess, view, nil
}

// checkAccess проверяет, что пользователь участник записи в заявленной роли.
// Для синтезированных записей участники ненастоящие, проверка не выполняется.
// Запись, полученная от сервиса расписаний, проверяется и в демо-режиме.
func (s *Service) checkAccess(view *lifecycle.View, caller models.Caller) error {
	if view.Synthetic {
		return nil
	}

	appt := view.Appointment
	switch caller.Role {
	case domain.RoleClient:
		if appt.ClientID == caller.UserID {
			return nil
		}
	case domain.RoleProfessional:
		if appt.ProfessionalID == caller.UserID {
			return nil
		}
	}

	s.logger.Warn("checkAccess: user=%s role=%s is not a participant of appointment=%s",
		caller.UserID, caller.Role, appt.ID)
	return ErrAccessDenied
}

func (s *Service) session(sessionID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok {
		return sess
	}

	sess := &session{
		id:       sessionID,
		executor: s.newExecutor(sessionID),
		syncers:  make(map[string]*syncHandle),
	}
	sess.executor.AddObserver(sess)
	s.sessions[sessionID] = sess

	s.logger.Info("session: created session=%s", sessionID)
	return sess
}

// startSyncer запускает синхронизацию переписки записи, если она ещё не запущена.
// При смене режима записи синхронизатор пересоздаётся под новый источник.
func (s *Service) startSyncer(sess *session, view *lifecycle.View, readerID string) *syncHandle {
	if s.newSyncer == nil || view.Appointment.ConversationRef == nil {
		return nil
	}
	appointmentID := view.Appointment.ID

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if h, ok := sess.syncers[appointmentID]; ok {
		if h.fallback == view.FallbackMode {
			return h
		}
		s.logger.Info("startSyncer: appointment=%s mode changed, restarting sync", appointmentID)
		h.cancel()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		delete(sess.syncers, appointmentID)
		return nil
	}
	s.wg.Add(1)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(s.ctx)
	h := &syncHandle{
		syncer:   s.newSyncer(view, readerID),
		cancel:   cancel,
		readerID: readerID,
		fallback: view.FallbackMode,
	}
	sess.syncers[appointmentID] = h

	go func() {
		defer s.wg.Done()
		h.syncer.Run(ctx)
	}()

	s.logger.Info("startSyncer: session=%s appointment=%s conversation=%s",
		sess.id, appointmentID, *view.Appointment.ConversationRef)
	return h
}
