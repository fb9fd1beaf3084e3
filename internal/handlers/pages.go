package handlers

import (
	"net/http"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/middleware"
	"shiftTracker/internal/render"
	"shiftTracker/internal/service"

	"go.uber.org/zap"
)

type ErrorPage struct {
	Status  int
	Message string
}

// pages - общая часть HTML-обработчиков
type pages struct {
	view *render.Renderer
}

func (p pages) page(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	p.view.Page(w, status, name, render.View{
		Title: title,
		User:  middleware.UserFromContext(r.Context()),
		Flash: render.PopFlash(w, r),
		Data:  data,
	})
}

func (p pages) errorPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	p.page(w, r, status, "error", message, ErrorPage{Status: status, Message: message})
}

// redirect для HTMX отдаёт HX-Redirect, чтобы перешла вся страница
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if render.IsHTMX(r) {
		w.Header().Set("HX-Redirect", url)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

func (p pages) success(w http.ResponseWriter, r *http.Request, message, url string) {
	render.SetFlash(w, render.FlashSuccess, message)
	redirect(w, r, url)
}

// fail: ошибки валидации и конфликты уходят во flash с редиректом на back,
// запрет и отсутствие объекта показываются страницей ошибки
func (p pages) fail(w http.ResponseWriter, r *http.Request, err error, back string) {
	busErr, ok := service.AsBusiness(err)
	if !ok {
		logger.Error("HTTP: Ошибка Service", err,
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path))
		p.errorPage(w, r, http.StatusInternalServerError, "Внутренняя ошибка сервера")
		return
	}

	logger.Warn("HTTP: Бизнес-ошибка",
		zap.String("error_code", busErr.Code),
		zap.String("path", r.URL.Path))

	// фрагмент HTMX не может показать страницу ошибки, сообщение уходит во flash
	if render.IsHTMX(r) {
		render.SetFlash(w, render.FlashError, busErr.Message)
		redirect(w, r, back)
		return
	}

	switch busErr.Code {
	case service.CodeForbidden:
		p.errorPage(w, r, http.StatusForbidden, "Доступ запрещен")
	case service.CodeNotFound:
		p.errorPage(w, r, http.StatusNotFound, busErr.Message)
	default:
		render.SetFlash(w, render.FlashError, busErr.Message)
		redirect(w, r, back)
	}
}

func (p pages) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	logger.Warn("HTTP: Некорректный запрос",
		zap.String("path", r.URL.Path),
		zap.String("error", message))
	p.errorPage(w, r, http.StatusBadRequest, message)
}

func parseForm(r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		logger.Warn("HTTP: Ошибка чтения формы", zap.Error(err))
		return false
	}
	return true
}
