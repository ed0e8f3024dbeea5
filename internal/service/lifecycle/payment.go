package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
	"github.com/m04kA/SMC-LifecycleService/internal/integrations/paymentservice"
)

// InitiatePayment запускает оплату подтверждённой записи.
// В живом режиме возвращает ссылку на оплату у партнёра, сама оплата
// прикрепляется колбэком (RecordPayment). В демо-режиме платёж
// синтезируется и сразу прикрепляется к записи.
func (e *Executor) InitiatePayment(ctx context.Context, appointmentID string, role domain.Role) (*PaymentInitiation, error) {
	e.logger.Info("InitiatePayment: session=%s appointment=%s role=%s", e.opts.SessionID, appointmentID, role)

	var result *PaymentInitiation
	err := e.withLock(ctx, appointmentID, func(ctx context.Context) error {
		gen := e.generation(appointmentID)

		cur, err := e.load(ctx, appointmentID, false)
		if err != nil {
			return err
		}

		status := cur.appt.ClientVisibleStatus()
		if !role.IsValid() {
			return &ForbiddenTransitionError{From: status, To: domain.ClientPaid, Role: role}
		}
		if status != domain.ClientConfirmed {
			e.logger.Warn("InitiatePayment: appointment=%s is %s", appointmentID, status)
			return ErrPaymentNotAllowed
		}
		if !cur.appt.HasEstimatedCost() {
			e.logger.Warn("InitiatePayment: appointment=%s has no estimated cost", appointmentID)
			return ErrEstimatedCostRequired
		}
		amount := cur.appt.EstimatedCost.Decimal

		if cur.mode == domain.ModeLive && e.payments != nil {
			payCtx, cancel := context.WithTimeout(ctx, e.opts.RemoteTimeout)
			p, err := e.payments.Initiate(payCtx, appointmentID, amount, e.opts.Currency)
			cancel()

			if ctx.Err() != nil {
				return ErrStaleView
			}
			if err != nil {
				e.logger.Error("InitiatePayment: appointment=%s: %v", appointmentID, err)
				return fmt.Errorf("%w: InitiatePayment - %v", ErrPaymentUnavailable, err)
			}
			result = &PaymentInitiation{Payment: p, View: e.view(cur)}
			return nil
		}

		now := e.timeProvider.Now()
		p := e.fallback.Payment(appointmentID, amount)
		p.PaidAt = &now

		next := cur.clone()
		ref := p.ID
		next.appt.PaymentRef = &ref
		next.payment = p

		committed, err := e.commit(ctx, appointmentID, gen, next)
		if err != nil {
			return err
		}
		result = &PaymentInitiation{Payment: p, View: e.view(committed)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("InitiatePayment: appointment=%s payment=%s status=%s",
		appointmentID, result.Payment.ID, result.Payment.Status)
	return result, nil
}

// RecordPayment прикрепляет платёж к записи (колбэк платёжного партнёра).
// Повторный вызов с той же ссылкой ничего не меняет.
func (e *Executor) RecordPayment(ctx context.Context, appointmentID, paymentRef string) (*View, error) {
	e.logger.Info("RecordPayment: session=%s appointment=%s ref=%s", e.opts.SessionID, appointmentID, paymentRef)

	paymentRef = strings.TrimSpace(paymentRef)
	if paymentRef == "" {
		return nil, ErrPaymentNotFound
	}

	var result *entry
	err := e.withLock(ctx, appointmentID, func(ctx context.Context) error {
		gen := e.generation(appointmentID)

		cur, err := e.load(ctx, appointmentID, false)
		if err != nil {
			return err
		}

		if cur.appt.HasPayment() {
			if *cur.appt.PaymentRef == paymentRef {
				result = cur
				return nil
			}
			e.logger.Warn("RecordPayment: appointment=%s already has payment %s", appointmentID, *cur.appt.PaymentRef)
			return ErrPaymentNotAllowed
		}
		if cur.appt.Status != domain.BackendConfirmed {
			e.logger.Warn("RecordPayment: appointment=%s is %s", appointmentID, cur.appt.Status)
			return ErrPaymentNotAllowed
		}

		p, err := e.resolvePayment(ctx, cur, paymentRef)
		if err != nil {
			return err
		}

		next := cur.clone()
		ref := paymentRef
		next.appt.PaymentRef = &ref
		next.payment = p

		result, err = e.commit(ctx, appointmentID, gen, next)
		return err
	})
	if err != nil {
		return nil, err
	}
	return e.view(result), nil
}

// resolvePayment проверяет платёж у партнёра или синтезирует его в демо-режиме
func (e *Executor) resolvePayment(ctx context.Context, cur *entry, paymentRef string) (*domain.Payment, error) {
	now := e.timeProvider.Now()

	if cur.mode != domain.ModeLive || e.payments == nil {
		return &domain.Payment{
			ID:            paymentRef,
			AppointmentID: cur.appt.ID,
			Amount:        cur.appt.EstimatedCost.Decimal,
			Currency:      e.opts.Currency,
			Status:        domain.PaymentSucceeded,
			PaidAt:        &now,
			CreatedAt:     now,
		}, nil
	}

	payCtx, cancel := context.WithTimeout(ctx, e.opts.RemoteTimeout)
	p, err := e.payments.GetPayment(payCtx, paymentRef)
	cancel()

	if ctx.Err() != nil {
		return nil, ErrStaleView
	}
	if err != nil {
		if errors.Is(err, paymentservice.ErrPaymentNotFound) {
			e.logger.Warn("RecordPayment: payment ref=%s not found", paymentRef)
			return nil, ErrPaymentNotFound
		}
		e.logger.Error("RecordPayment: failed to get payment ref=%s: %v", paymentRef, err)
		return nil, fmt.Errorf("%w: RecordPayment - %v", ErrPaymentUnavailable, err)
	}

	if p.AppointmentID != cur.appt.ID || p.Status != domain.PaymentSucceeded {
		e.logger.Warn("RecordPayment: payment ref=%s appointment=%s status=%s rejected",
			paymentRef, p.AppointmentID, p.Status)
		return nil, ErrPaymentNotCompleted
	}
	if p.PaidAt == nil {
		p.PaidAt = &now
	}
	return p, nil
}

// Close закрывает представление записи. Ответы, пришедшие после закрытия,
// отбрасываются. Режим сессии (если он был включён) сохраняется.
func (e *Executor) Close(ctx context.Context, appointmentID string) error {
	e.logger.Info("Close: session=%s appointment=%s", e.opts.SessionID, appointmentID)

	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	e.mu.Lock()
	delete(e.entries, appointmentID)
	e.generations[appointmentID]++
	e.mu.Unlock()

	if err := e.snapshots.Delete(ctx, e.opts.SessionID, appointmentID); err != nil {
		e.logger.Error("Close: failed to delete snapshot appointment=%s: %v", appointmentID, err)
		return fmt.Errorf("%w: Close - delete snapshot: %v", ErrInternal, err)
	}
	return nil
}
