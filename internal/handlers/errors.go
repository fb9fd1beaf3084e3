package handlers

import (
	"net/http"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/service"

	"go.uber.org/zap"
)

// handleBusinessError отвечает JSON для BusinessError, возвращает false для прочих ошибок
func handleBusinessError(w http.ResponseWriter, err error) bool {
	businessErr, ok := service.AsBusiness(err)
	if !ok {
		return false
	}
	statusCode := mapBusinessErrorToHTTP(businessErr.Code)

	logger.Warn("HTTP: Бизнес-ошибка",
		zap.String("error_code", businessErr.Code),
		zap.Int("http_status", statusCode))

	responseWithJSON(w, statusCode,
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
		toPayload("details", businessErr.Details),
	)
	return true
}

// respondJSONError - бизнес-ошибка или 500
func respondJSONError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	if handleBusinessError(w, err) {
		return
	}
	logger.Error("HTTP: Ошибка Service", err,
		zap.String("operation", operation),
		zap.String("client_ip", r.RemoteAddr))
	responseWithError(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeForbidden:
		return http.StatusForbidden
	case service.CodeAlreadyCompleted, service.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
