package handlers

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
	"github.com/m04kA/SMC-LifecycleService/internal/service/appointments"
	"github.com/m04kA/SMC-LifecycleService/internal/service/lifecycle"
)

const (
	msgUnknownStatus        = "неизвестный статус записи"
	msgForbiddenTransition  = "переход недоступен для вашей роли"
	msgAccessDenied         = "доступ запрещен"
	msgNotFound             = "запись не найдена"
	msgInProgress           = "по записи уже выполняется переход"
	msgStaleView            = "представление записи закрыто"
	msgEstimatedCost        = "не указана стоимость записи"
	msgPaymentNotAllowed    = "оплата записи сейчас недоступна"
	msgPaymentNotFound      = "платёж не найден"
	msgPaymentNotCompleted  = "платёж не завершён"
	msgPaymentUnavailable   = "платёжный сервис недоступен"
	msgInvalidInput         = "некорректные входные данные"
	msgConversationNotFound = "у записи нет переписки"
	msgRemoteRejected       = "сервис расписаний отклонил операцию"
)

// RespondServiceError переводит ошибку сервиса в HTTP ответ и возвращает код
func RespondServiceError(w http.ResponseWriter, err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownStatus):
		RespondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  msgUnknownStatus,
			Status: string(domain.ClientStatusUnknown),
		})
		return http.StatusUnprocessableEntity

	case errors.Is(err, lifecycle.ErrForbiddenTransition):
		RespondForbidden(w, msgForbiddenTransition)
		return http.StatusForbidden

	case errors.Is(err, appointments.ErrAccessDenied):
		RespondForbidden(w, msgAccessDenied)
		return http.StatusForbidden

	case errors.Is(err, lifecycle.ErrAppointmentNotFound):
		RespondNotFound(w, msgNotFound)
		return http.StatusNotFound

	case errors.Is(err, lifecycle.ErrPaymentNotFound):
		RespondNotFound(w, msgPaymentNotFound)
		return http.StatusNotFound

	case errors.Is(err, appointments.ErrConversationNotFound):
		RespondNotFound(w, msgConversationNotFound)
		return http.StatusNotFound

	case errors.Is(err, lifecycle.ErrTransitionInProgress):
		RespondConflict(w, msgInProgress)
		return http.StatusConflict

	case errors.Is(err, lifecycle.ErrStaleView):
		RespondConflict(w, msgStaleView)
		return http.StatusConflict

	case errors.Is(err, lifecycle.ErrRemoteRejected):
		RespondConflict(w, msgRemoteRejected)
		return http.StatusConflict

	case errors.Is(err, lifecycle.ErrPaymentNotAllowed):
		RespondConflict(w, msgPaymentNotAllowed)
		return http.StatusConflict

	case errors.Is(err, lifecycle.ErrEstimatedCostRequired):
		RespondBadRequest(w, msgEstimatedCost)
		return http.StatusBadRequest

	case errors.Is(err, lifecycle.ErrPaymentNotCompleted):
		RespondBadRequest(w, msgPaymentNotCompleted)
		return http.StatusBadRequest

	case errors.Is(err, appointments.ErrInvalidInput):
		RespondBadRequest(w, msgInvalidInput)
		return http.StatusBadRequest

	case errors.Is(err, lifecycle.ErrPaymentUnavailable):
		RespondError(w, http.StatusServiceUnavailable, msgPaymentUnavailable)
		return http.StatusServiceUnavailable

	default:
		RespondInternalError(w)
		return http.StatusInternalServerError
	}
}
