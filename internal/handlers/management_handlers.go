package handlers

import (
	"fmt"
	"net/http"
	"shiftTracker/internal/middleware"
	"shiftTracker/internal/models/template"
	"shiftTracker/internal/render"
	"shiftTracker/internal/service"

	"github.com/google/uuid"
)

type ManagementHandler struct {
	pages
	tasks     TaskService
	templates TemplateService
}

func NewManagementHandler(tasks TaskService, templates TemplateService, view *render.Renderer) *ManagementHandler {
	return &ManagementHandler{
		pages:     pages{view: view},
		tasks:     tasks,
		templates: templates,
	}
}

type ManagementPage struct {
	Templates []*template.TaskTemplate
	Items     []*template.SubtaskItem
	Stats     *service.ManagementStats
}

func (h *ManagementHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())

	// админ видит и неактивные шаблоны
	templates, err := h.templates.ListTemplates(r.Context(), u, !u.CanManageTemplates())
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	stats, err := h.tasks.ManagementStats(r.Context())
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	data := ManagementPage{Templates: templates, Stats: stats}
	if u.CanManageTemplates() {
		if data.Items, err = h.templates.ListSubtaskItems(r.Context(), false); err != nil {
			h.fail(w, r, err, "/")
			return
		}
	}

	h.page(w, r, http.StatusOK, "management", "Управление", data)
}

type TemplateForm struct {
	Action               string
	IsCreate             bool
	Name                 string
	Description          string
	IsActive             bool
	AvailableForManagers bool
	Items                []*template.SubtaskItem
	Selected             map[uuid.UUID]bool
}

func (h *ManagementHandler) templateForm(w http.ResponseWriter, r *http.Request, form TemplateForm) {
	items, err := h.templates.ListSubtaskItems(r.Context(), false)
	if err != nil {
		h.fail(w, r, err, "/management")
		return
	}
	form.Items = items
	if form.Selected == nil {
		form.Selected = map[uuid.UUID]bool{}
	}

	title := "Изменить шаблон"
	if form.IsCreate {
		title = "Новый шаблон"
	}
	h.page(w, r, http.StatusOK, "template_form", title, form)
}

func templateInput(r *http.Request) service.TemplateInput {
	return service.TemplateInput{
		Name:                 r.PostFormValue("name"),
		Description:          r.PostFormValue("description"),
		IsActive:             checkbox(r, "is_active"),
		AvailableForManagers: checkbox(r, "available_for_managers"),
		ItemIDs:              parseIDs(formList(r, "subtask_ids")),
		SubtaskNames:         formList(r, "subtask_name"),
	}
}

func (h *ManagementHandler) CreateTemplateForm(w http.ResponseWriter, r *http.Request) {
	h.templateForm(w, r, TemplateForm{
		Action:   "/management/template/create",
		IsCreate: true,
		IsActive: true,
	})
}

func (h *ManagementHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	if !parseForm(r) {
		h.badRequest(w, r, "Некорректные данные формы")
		return
	}

	created, err := h.templates.CreateTemplate(r.Context(), middleware.UserFromContext(r.Context()), templateInput(r))
	if err != nil {
		h.fail(w, r, err, "/management/template/create")
		return
	}
	h.success(w, r, fmt.Sprintf("Шаблон %q успешно создан", created.Name), "/management")
}

func (h *ManagementHandler) EditTemplateForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.badRequest(w, r, "Некорректный id шаблона")
		return
	}

	tmpl, err := h.templates.GetTemplate(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err, "/management")
		return
	}

	selected := make(map[uuid.UUID]bool, len(tmpl.Entries))
	for _, e := range tmpl.Entries {
		selected[e.ItemID] = true
	}

	h.templateForm(w, r, TemplateForm{
		Action:               "/management/template/" + id.String() + "/edit",
		Name:                 tmpl.Name,
		Description:          tmpl.Description,
		IsActive:             tmpl.IsActive,
		AvailableForManagers: tmpl.AvailableForManagers,
		Selected:             selected,
	})
}

func (h *ManagementHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.badRequest(w, r, "Некорректный id шаблона")
		return
	}
	if !parseForm(r) {
		h.badRequest(w, r, "Некорректные данные формы")
		return
	}

	updated, err := h.templates.UpdateTemplate(r.Context(), middleware.UserFromContext(r.Context()), id, templateInput(r))
	if err != nil {
		h.fail(w, r, err, "/management/template/"+id.String()+"/edit")
		return
	}
	h.success(w, r, fmt.Sprintf("Шаблон %q успешно обновлен", updated.Name), "/management")
}

func (h *ManagementHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.badRequest(w, r, "Некорректный id шаблона")
		return
	}

	deleted, err := h.templates.DeleteTemplate(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err, "/management")
		return
	}
	h.success(w, r, fmt.Sprintf("Шаблон %q удален", deleted.Name), "/management")
}

type ItemForm struct {
	Action      string
	IsCreate    bool
	Name        string
	Description string
	IsActive    bool
}

func itemInput(r *http.Request) service.ItemInput {
	return service.ItemInput{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		IsActive:    checkbox(r, "is_active"),
	}
}

func (h *ManagementHandler) CreateItemForm(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusOK, "item_form", "Новый объект подзадачи", ItemForm{
		Action:   "/management/item/create",
		IsCreate: true,
		IsActive: true,
	})
}

func (h *ManagementHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	if !parseForm(r) {
		h.badRequest(w, r, "Некорректные данные формы")
		return
	}

	item, err := h.templates.CreateSubtaskItem(r.Context(), middleware.UserFromContext(r.Context()), itemInput(r))
	if err != nil {
		h.fail(w, r, err, "/management/item/create")
		return
	}
	h.success(w, r, fmt.Sprintf("Объект подзадачи %q создан", item.Name), "/management")
}

func (h *ManagementHandler) EditItemForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.badRequest(w, r, "Некорректный id объекта подзадачи")
		return
	}

	item, err := h.templates.GetSubtaskItem(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/management")
		return
	}

	h.page(w, r, http.StatusOK, "item_form", "Изменить объект подзадачи", ItemForm{
		Action:      "/management/item/" + id.String() + "/edit",
		Name:        item.Name,
		Description: item.Description,
		IsActive:    item.IsActive,
	})
}

func (h *ManagementHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.badRequest(w, r, "Некорректный id объекта подзадачи")
		return
	}
	if !parseForm(r) {
		h.badRequest(w, r, "Некорректные данные формы")
		return
	}

	item, err := h.templates.UpdateSubtaskItem(r.Context(), middleware.UserFromContext(r.Context()), id, itemInput(r))
	if err != nil {
		h.fail(w, r, err, "/management/item/"+id.String()+"/edit")
		return
	}
	h.success(w, r, fmt.Sprintf("Объект подзадачи %q обновлен", item.Name), "/management")
}
