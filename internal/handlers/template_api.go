package handlers

import (
	"encoding/json"
	"net/http"
	"shiftTracker/internal/handlers/dto"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/middleware"
	"shiftTracker/internal/service"
	"time"

	"go.uber.org/zap"
)

// TemplateAPIHandler - JSON API шаблонов для форм создания задач
type TemplateAPIHandler struct {
	templates TemplateService
}

func NewTemplateAPIHandler(templates TemplateService) *TemplateAPIHandler {
	return &TemplateAPIHandler{templates: templates}
}

func (h *TemplateAPIHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.ListTemplates(r.Context(), middleware.UserFromContext(r.Context()), true)
	if err != nil {
		respondJSONError(w, r, err, "list_templates")
		return
	}
	writeJSON(w, http.StatusOK, dto.FromTemplateList(templates))
}

func (h *TemplateAPIHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		responseWithError(w, http.StatusBadRequest, "некорректный id шаблона")
		return
	}

	tmpl, err := h.templates.GetTemplate(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		respondJSONError(w, r, err, "get_template")
		return
	}
	writeJSON(w, http.StatusOK, dto.FromTemplateDetail(tmpl))
}

func (h *TemplateAPIHandler) SubtaskItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.templates.ListSubtaskItems(r.Context(), true)
	if err != nil {
		respondJSONError(w, r, err, "list_subtask_items")
		return
	}
	writeJSON(w, http.StatusOK, dto.FromItemList(items))
}

func decodeTemplateRequest(w http.ResponseWriter, r *http.Request) (service.TemplateInput, bool) {
	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return service.TemplateInput{}, false
	}

	var request dto.TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return service.TemplateInput{}, false
	}

	// без явного is_active шаблон считается активным
	isActive := true
	if request.IsActive != nil {
		isActive = *request.IsActive
	}

	return service.TemplateInput{
		Name:                 request.Name,
		Description:          request.Description,
		IsActive:             isActive,
		AvailableForManagers: request.AvailableForManagers,
		ItemIDs:              request.SubtaskIDs,
		SubtaskNames:         request.SubtaskNames,
	}, true
}

func (h *TemplateAPIHandler) Create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	in, ok := decodeTemplateRequest(w, r)
	if !ok {
		return
	}

	created, err := h.templates.CreateTemplate(r.Context(), middleware.UserFromContext(r.Context()), in)
	if err != nil {
		respondJSONError(w, r, err, "create_template")
		return
	}

	logger.Info("HTTP_OUT: Шаблон создан",
		zap.String("template_id", created.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	writeJSON(w, http.StatusCreated, dto.FromTemplateDetail(created))
}

func (h *TemplateAPIHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		responseWithError(w, http.StatusBadRequest, "некорректный id шаблона")
		return
	}

	in, ok := decodeTemplateRequest(w, r)
	if !ok {
		return
	}

	updated, err := h.templates.UpdateTemplate(r.Context(), middleware.UserFromContext(r.Context()), id, in)
	if err != nil {
		respondJSONError(w, r, err, "update_template")
		return
	}
	writeJSON(w, http.StatusOK, dto.FromTemplateDetail(updated))
}

func (h *TemplateAPIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		responseWithError(w, http.StatusBadRequest, "некорректный id шаблона")
		return
	}

	if _, err := h.templates.DeleteTemplate(r.Context(), middleware.UserFromContext(r.Context()), id); err != nil {
		respondJSONError(w, r, err, "delete_template")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
