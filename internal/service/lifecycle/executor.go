// Package lifecycle исполняет переходы статуса записи.
//
// Исполнитель привязан к сессии. Для каждой записи он хранит последнее
// известное состояние и режим источника данных (live или fallback).
// Сбой сервиса расписаний не возвращается вызывающему коду: исполнитель
// переключает запись (или всю сессию) в демо-режим и повторяет тот же
// переход локально.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
	"github.com/m04kA/SMC-LifecycleService/internal/infra/lock"
	"github.com/m04kA/SMC-LifecycleService/internal/infra/storage/snapshot"
	"github.com/m04kA/SMC-LifecycleService/internal/integrations/schedulingservice"
	"github.com/m04kA/SMC-LifecycleService/internal/service/history"
	"github.com/m04kA/SMC-LifecycleService/internal/service/policy"
)

type entry struct {
	appt    *domain.Appointment
	payment *domain.Payment
	mode    domain.DataSourceMode
	// synthetic запись целиком сгенерирована FallbackStore, участники не настоящие
	synthetic bool
}

func (en *entry) clone() *entry {
	out := &entry{appt: en.appt.Clone(), mode: en.mode, synthetic: en.synthetic}
	if en.payment != nil {
		p := *en.payment
		out.payment = &p
	}
	return out
}

// Executor исполнитель переходов одной сессии
type Executor struct {
	remote       SchedulingClient
	payments     PaymentClient
	fallback     FallbackStore
	snapshots    SnapshotStore
	locker       Locker
	opts         Options
	timeProvider TimeProvider
	metrics      Metrics
	observers    []TransitionObserver
	logger       Logger

	// persistMu держится на время записи снимка и закрытия представления
	persistMu sync.Mutex

	mu              sync.Mutex
	entries         map[string]*entry
	generations     map[string]uint64
	sessionFallback bool
}

// NewExecutor создает исполнитель переходов для сессии opts.SessionID
func NewExecutor(
	remote SchedulingClient,
	payments PaymentClient,
	fallback FallbackStore,
	snapshots SnapshotStore,
	locker Locker,
	opts Options,
	logger Logger,
) *Executor {
	return &Executor{
		remote:       remote,
		payments:     payments,
		fallback:     fallback,
		snapshots:    snapshots,
		locker:       locker,
		opts:         opts.withDefaults(),
		timeProvider: &RealTimeProvider{},
		metrics:      noopMetrics{},
		logger:       logger,
		entries:      make(map[string]*entry),
		generations:  make(map[string]uint64),
	}
}

// SetMetrics подключает метрики
func (e *Executor) SetMetrics(m Metrics) {
	if m != nil {
		e.metrics = m
	}
}

// AddObserver подписывает наблюдателя на переходы. Вызывать до начала работы.
func (e *Executor) AddObserver(o TransitionObserver) {
	e.observers = append(e.observers, o)
}

// SessionID идентификатор сессии исполнителя
func (e *Executor) SessionID() string {
	return e.opts.SessionID
}

// Load загружает запись из сервиса расписаний и возвращает её представление.
// Если запись уже в демо-режиме, сервис расписаний повторно не опрашивается.
func (e *Executor) Load(ctx context.Context, appointmentID string) (*View, error) {
	e.logger.Info("Load: session=%s appointment=%s", e.opts.SessionID, appointmentID)

	ent, err := e.load(ctx, appointmentID, true)
	if err != nil {
		return nil, err
	}
	return e.view(ent), nil
}

// Current возвращает известное исполнителю состояние записи без повторного запроса.
// При первом обращении запись загружается так же, как в Load.
func (e *Executor) Current(ctx context.Context, appointmentID string) (*View, error) {
	ent, err := e.load(ctx, appointmentID, false)
	if err != nil {
		return nil, err
	}
	return e.view(ent), nil
}

// AvailableTransitions возвращает переходы, доступные роли в текущем статусе записи
func (e *Executor) AvailableTransitions(ctx context.Context, appointmentID string, role domain.Role) ([]policy.Transition, error) {
	ent, err := e.load(ctx, appointmentID, false)
	if err != nil {
		return nil, err
	}
	return policy.AvailableTransitions(ent.appt.ClientVisibleStatus(), role), nil
}

// History возвращает восстановленную историю записи
func (e *Executor) History(ctx context.Context, appointmentID string) ([]history.Entry, error) {
	ent, err := e.load(ctx, appointmentID, false)
	if err != nil {
		return nil, err
	}
	return history.Build(ent.appt, ent.payment), nil
}

// IsFallbackMode возвращает true, если данные записи синтезированы локально
func (e *Executor) IsFallbackMode(appointmentID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sessionFallback {
		return true
	}
	ent, ok := e.entries[appointmentID]
	return ok && ent.mode == domain.ModeFallback
}

// RequestTransition переводит запись в статус target от имени роли role.
// Запрещённый переход отклоняется до любого обращения к сервису расписаний.
func (e *Executor) RequestTransition(ctx context.Context, appointmentID string, target domain.ClientStatus, role domain.Role) (*View, error) {
	e.logger.Info("RequestTransition: session=%s appointment=%s target=%s role=%s",
		e.opts.SessionID, appointmentID, target, role)

	if !target.IsValid() {
		e.metrics.RecordTransition(string(target), e.modeLabel(appointmentID), "invalid")
		return nil, &domain.UnknownStatusError{Vocabulary: "client", Value: string(target)}
	}

	var result *entry
	err := e.withLock(ctx, appointmentID, func(ctx context.Context) error {
		var err error
		result, err = e.transition(ctx, appointmentID, target, role)
		return err
	})

	e.metrics.RecordTransition(string(target), e.modeLabel(appointmentID), resultLabel(err))
	if err != nil {
		return nil, err
	}

	e.logger.Info("RequestTransition: appointment=%s is now %s (mode=%s)",
		appointmentID, result.appt.ClientVisibleStatus(), result.mode)
	return e.view(result), nil
}

func (e *Executor) transition(ctx context.Context, appointmentID string, target domain.ClientStatus, role domain.Role) (*entry, error) {
	gen := e.generation(appointmentID)

	cur, err := e.load(ctx, appointmentID, false)
	if err != nil {
		return nil, err
	}

	from := cur.appt.ClientVisibleStatus()
	if from == domain.ClientStatusUnknown {
		return nil, &domain.UnknownStatusError{Vocabulary: "backend", Value: string(cur.appt.Status)}
	}

	// 1. Проверка политики до любого сетевого вызова
	tr, ok := policy.Allows(from, role, target)
	if !ok {
		e.logger.Warn("RequestTransition: forbidden %s -> %s for role=%s appointment=%s", from, target, role, appointmentID)
		return nil, &ForbiddenTransitionError{From: from, To: target, Role: role}
	}
	if tr.SideEffect == policy.SideEffectInitiatePayment && !cur.appt.HasEstimatedCost() {
		e.logger.Warn("RequestTransition: appointment=%s has no estimated cost", appointmentID)
		return nil, ErrEstimatedCostRequired
	}

	// 2. Перевод в словарь сервиса расписаний
	backend, err := domain.ToBackendStatus(target)
	if err != nil {
		return nil, err
	}

	// 3. Живой вызов, при сбое транспорта локальное применение
	next, err := e.apply(ctx, appointmentID, cur, target, backend)
	if err != nil {
		return nil, err
	}

	return e.commit(ctx, appointmentID, gen, next)
}

func (e *Executor) apply(ctx context.Context, appointmentID string, cur *entry, target domain.ClientStatus, backend domain.BackendStatus) (*entry, error) {
	if cur.mode == domain.ModeLive && !e.isSessionFallback() {
		appt, op, err := e.callTransition(ctx, appointmentID, backend)
		if ctx.Err() != nil {
			e.logger.Warn("RequestTransition: appointment=%s view closed during %s, result dropped", appointmentID, op)
			return nil, ErrStaleView
		}
		if err == nil {
			e.metrics.RecordRemoteCall(op, "ok")
			next := &entry{appt: appt, mode: domain.ModeLive}
			carryPayment(next, cur)
			return next, nil
		}
		if hard, hardErr := e.classify(op, appointmentID, err); hard {
			return nil, hardErr
		}
		e.enterFallback(appointmentID, err)
	}

	return e.applyLocally(appointmentID, cur, target, backend), nil
}

// applyLocally применяет переход в памяти (демо-режим)
func (e *Executor) applyLocally(appointmentID string, cur *entry, target domain.ClientStatus, backend domain.BackendStatus) *entry {
	now := e.timeProvider.Now()

	next := cur.clone()
	next.mode = domain.ModeFallback
	next.appt.Status = backend
	next.appt.UpdatedAt = now

	if target == domain.ClientPaid && !next.appt.HasPayment() {
		p := e.fallback.Payment(appointmentID, next.appt.EstimatedCost.Decimal)
		p.PaidAt = &now
		ref := p.ID
		next.appt.PaymentRef = &ref
		next.payment = p
	}
	return next
}

func (e *Executor) callTransition(ctx context.Context, appointmentID string, backend domain.BackendStatus) (*domain.Appointment, string, error) {
	remoteCtx, cancel := context.WithTimeout(ctx, e.opts.RemoteTimeout)
	defer cancel()

	switch backend {
	case domain.BackendConfirmed:
		appt, err := e.remote.Confirm(remoteCtx, appointmentID)
		return appt, "Confirm", err
	case domain.BackendCompleted:
		appt, err := e.remote.Complete(remoteCtx, appointmentID)
		return appt, "Complete", err
	case domain.BackendCancelled:
		appt, err := e.remote.Cancel(remoteCtx, appointmentID)
		return appt, "Cancel", err
	default:
		appt, err := e.remote.PartialUpdate(remoteCtx, appointmentID, backend)
		return appt, "PartialUpdate", err
	}
}

// load возвращает текущее состояние записи. refresh=false отдаёт кэш, если он есть.
func (e *Executor) load(ctx context.Context, appointmentID string, refresh bool) (*entry, error) {
	if !refresh {
		if ent := e.cached(appointmentID); ent != nil {
			return ent, nil
		}
	}

	gen := e.generation(appointmentID)
	prev := e.previous(ctx, appointmentID)

	if e.isSessionFallback() || (prev != nil && prev.mode == domain.ModeFallback) {
		return e.commit(ctx, appointmentID, gen, e.fallbackEntry(appointmentID, prev))
	}

	remoteCtx, cancel := context.WithTimeout(ctx, e.opts.RemoteTimeout)
	appt, err := e.remote.GetAppointment(remoteCtx, appointmentID)
	cancel()

	if ctx.Err() != nil {
		e.logger.Warn("Load: appointment=%s view closed during fetch, result dropped", appointmentID)
		return nil, ErrStaleView
	}
	if err != nil {
		if hard, hardErr := e.classify("GetAppointment", appointmentID, err); hard {
			return nil, hardErr
		}
		e.enterFallback(appointmentID, err)
		return e.commit(ctx, appointmentID, gen, e.fallbackEntry(appointmentID, prev))
	}

	e.metrics.RecordRemoteCall("GetAppointment", "ok")
	next := &entry{appt: appt, mode: domain.ModeLive}
	carryPayment(next, prev)
	e.lookupPayment(ctx, next)

	return e.commit(ctx, appointmentID, gen, next)
}

// fallbackEntry строит демо-состояние: от последнего известного, иначе синтезирует
func (e *Executor) fallbackEntry(appointmentID string, prev *entry) *entry {
	if prev != nil {
		next := prev.clone()
		next.mode = domain.ModeFallback
		return next
	}
	return &entry{appt: e.fallback.Appointment(appointmentID), mode: domain.ModeFallback, synthetic: true}
}

// lookupPayment подтягивает платёж для истории. Ошибка не критична.
func (e *Executor) lookupPayment(ctx context.Context, ent *entry) {
	if e.payments == nil || !ent.appt.HasPayment() || ent.payment != nil {
		return
	}

	payCtx, cancel := context.WithTimeout(ctx, e.opts.RemoteTimeout)
	defer cancel()

	p, err := e.payments.GetPayment(payCtx, *ent.appt.PaymentRef)
	if err != nil {
		e.logger.Warn("Load: failed to get payment ref=%s for appointment=%s: %v", *ent.appt.PaymentRef, ent.appt.ID, err)
		return
	}
	ent.payment = p
}

// classify отделяет ошибки, которые нельзя спрятать за демо-режимом
func (e *Executor) classify(op, appointmentID string, err error) (bool, error) {
	switch {
	case errors.Is(err, schedulingservice.ErrAppointmentNotFound):
		e.metrics.RecordRemoteCall(op, "not_found")
		e.logger.Warn("%s: appointment=%s not found", op, appointmentID)
		return true, ErrAppointmentNotFound
	case errors.Is(err, schedulingservice.ErrRejected):
		e.metrics.RecordRemoteCall(op, "rejected")
		e.logger.Warn("%s: appointment=%s rejected: %v", op, appointmentID, err)
		return true, fmt.Errorf("%w: %s - %v", ErrRemoteRejected, op, err)
	case errors.Is(err, domain.ErrUnknownStatus):
		e.metrics.RecordRemoteCall(op, "unknown_status")
		e.logger.Error("%s: appointment=%s: %v", op, appointmentID, err)
		return true, err
	}
	e.metrics.RecordRemoteCall(op, "transport_error")
	return false, nil
}

// enterFallback включает демо-режим для записи или всей сессии
func (e *Executor) enterFallback(appointmentID string, cause error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.opts.FallbackScope == domain.FallbackScopeSession {
		if e.sessionFallback {
			return
		}
		e.sessionFallback = true
		for _, ent := range e.entries {
			ent.mode = domain.ModeFallback
		}
	} else if ent, ok := e.entries[appointmentID]; ok && ent.mode == domain.ModeFallback {
		return
	}

	e.metrics.RecordFallback(string(e.opts.FallbackScope))
	e.logger.Warn("Fallback: session=%s appointment=%s switched to demo mode (scope=%s): %v",
		e.opts.SessionID, appointmentID, e.opts.FallbackScope, cause)
}

// commit сохраняет новое состояние, если представление всё ещё открыто
func (e *Executor) commit(ctx context.Context, appointmentID string, gen uint64, ent *entry) (*entry, error) {
	if ctx.Err() != nil {
		return nil, ErrStaleView
	}

	// Проверка поколения и запись снимка под одним persistMu, иначе Close
	// между ними удалит снимок раньше, чем он будет записан
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	e.mu.Lock()
	if e.generations[appointmentID] != gen {
		e.mu.Unlock()
		e.logger.Warn("Commit: appointment=%s view was closed, result dropped", appointmentID)
		return nil, ErrStaleView
	}
	if e.sessionFallback {
		ent.mode = domain.ModeFallback
	}
	e.entries[appointmentID] = ent
	e.mu.Unlock()

	if err := e.snapshots.Save(ctx, e.opts.SessionID, toSnapshot(ent)); err != nil {
		e.logger.Warn("Commit: failed to save snapshot appointment=%s: %v", appointmentID, err)
	}
	return ent.clone(), nil
}

// previous последнее известное состояние: память, затем снимок
func (e *Executor) previous(ctx context.Context, appointmentID string) *entry {
	if ent := e.cached(appointmentID); ent != nil {
		return ent
	}

	snap, err := e.snapshots.Get(ctx, e.opts.SessionID, appointmentID)
	if err != nil {
		if !errors.Is(err, snapshot.ErrSnapshotNotFound) {
			e.logger.Warn("Load: failed to read snapshot appointment=%s: %v", appointmentID, err)
		}
		return nil
	}
	return e.fromSnapshot(snap)
}

func (e *Executor) cached(appointmentID string) *entry {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.entries[appointmentID]
	if !ok {
		return nil
	}
	return ent.clone()
}

func (e *Executor) generation(appointmentID string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generations[appointmentID]
}

func (e *Executor) isSessionFallback() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionFallback
}

func (e *Executor) modeLabel(appointmentID string) string {
	if e.IsFallbackMode(appointmentID) {
		return string(domain.ModeFallback)
	}
	return string(domain.ModeLive)
}

// withLock сериализует изменяющие операции по записи
func (e *Executor) withLock(ctx context.Context, appointmentID string, fn func(ctx context.Context) error) error {
	err := e.locker.WithAppointmentLock(ctx, appointmentID, func(ctx context.Context) error {
		for _, o := range e.observers {
			o.TransitionStarted(appointmentID)
		}
		defer func() {
			for _, o := range e.observers {
				o.TransitionFinished(appointmentID)
			}
		}()
		return fn(ctx)
	})
	if errors.Is(err, lock.ErrLockNotAcquired) {
		e.logger.Warn("Lock: appointment=%s is busy", appointmentID)
		return ErrTransitionInProgress
	}
	if err != nil && !isDomainError(err) {
		e.logger.Error("Lock: appointment=%s: %v", appointmentID, err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return err
}

func (e *Executor) view(ent *entry) *View {
	v := &View{
		Appointment:  ent.appt.Clone(),
		History:      history.Build(ent.appt, ent.payment),
		FallbackMode: ent.mode == domain.ModeFallback,
		Synthetic:    ent.synthetic,
	}
	if ent.payment != nil {
		p := *ent.payment
		v.Payment = &p
	}
	return v
}

// carryPayment переносит локально известную оплату на свежий ответ сервиса расписаний.
// Сервис расписаний не хранит ссылку на платёж, поэтому без переноса paid терялся бы.
func carryPayment(next, prev *entry) {
	if prev == nil || !prev.appt.HasPayment() {
		return
	}
	if next.appt.Status != domain.BackendConfirmed && next.appt.Status != domain.BackendCompleted {
		return
	}
	if !next.appt.HasPayment() {
		ref := *prev.appt.PaymentRef
		next.appt.PaymentRef = &ref
	}
	if *next.appt.PaymentRef == *prev.appt.PaymentRef && prev.payment != nil {
		p := *prev.payment
		next.payment = &p
	}
}

func toSnapshot(ent *entry) *snapshot.Snapshot {
	s := &snapshot.Snapshot{Appointment: ent.appt.Clone(), Mode: ent.mode, Synthetic: ent.synthetic}
	if ent.payment != nil && ent.payment.PaidAt != nil {
		t := *ent.payment.PaidAt
		s.PaidAt = &t
	}
	return s
}

func (e *Executor) fromSnapshot(s *snapshot.Snapshot) *entry {
	ent := &entry{appt: s.Appointment, mode: s.Mode, synthetic: s.Synthetic}
	if ent.mode != domain.ModeFallback {
		ent.mode = domain.ModeLive
	}
	if s.PaidAt != nil && ent.appt.HasPayment() {
		paidAt := *s.PaidAt
		ent.payment = &domain.Payment{
			ID:            *ent.appt.PaymentRef,
			AppointmentID: ent.appt.ID,
			Amount:        ent.appt.EstimatedCost.Decimal,
			Currency:      e.opts.Currency,
			Status:        domain.PaymentSucceeded,
			PaidAt:        &paidAt,
			CreatedAt:     paidAt,
		}
	}
	return ent
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrAppointmentNotFound,
		ErrRemoteRejected,
		ErrForbiddenTransition,
		ErrTransitionInProgress,
		ErrStaleView,
		ErrEstimatedCostRequired,
		ErrPaymentNotAllowed,
		ErrPaymentNotFound,
		ErrPaymentNotCompleted,
		ErrPaymentUnavailable,
		ErrInternal,
		domain.ErrUnknownStatus,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrForbiddenTransition):
		return "forbidden"
	case errors.Is(err, domain.ErrUnknownStatus), errors.Is(err, ErrEstimatedCostRequired):
		return "invalid"
	case errors.Is(err, ErrTransitionInProgress):
		return "busy"
	case errors.Is(err, ErrStaleView):
		return "stale"
	case errors.Is(err, ErrAppointmentNotFound):
		return "not_found"
	case errors.Is(err, ErrRemoteRejected):
		return "rejected"
	}
	return "error"
}
