package service_test

import (
	"context"
	"shiftTracker/internal/models/user"
	"shiftTracker/internal/repository/inmemory"
	"shiftTracker/internal/service"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateService_CRUD(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()
	svc := service.NewTemplateService(storage)
	admin := newUser(user.RoleAdmin)
	manager := newUser(user.RoleManager)

	cash, err := svc.CreateSubtaskItem(ctx, admin, service.ItemInput{Name: "Касса", IsActive: true})
	require.NoError(t, err)

	_, err = svc.CreateSubtaskItem(ctx, manager, service.ItemInput{Name: "Склад", IsActive: true})
	requireCode(t, err, service.CodeForbidden)

	_, err = svc.CreateTemplate(ctx, manager, service.TemplateInput{Name: "Открытие"})
	requireCode(t, err, service.CodeForbidden)

	_, err = svc.CreateTemplate(ctx, admin, service.TemplateInput{Name: " "})
	requireCode(t, err, service.CodeValidation)

	tmpl, err := svc.CreateTemplate(ctx, admin, service.TemplateInput{
		Name:         "Открытие",
		IsActive:     true,
		ItemIDs:      []uuid.UUID{cash.ID, cash.ID},
		SubtaskNames: []string{"Свет", "Касса", ""},
	})
	require.NoError(t, err)
	require.Len(t, tmpl.Entries, 2, "повторы отбрасываются")
	assert.Equal(t, "Касса", tmpl.Entries[0].Item.Name)
	assert.Equal(t, 0, tmpl.Entries[0].Order)
	assert.Equal(t, "Свет", tmpl.Entries[1].Item.Name)
	assert.Equal(t, 1, tmpl.Entries[1].Order)

	// шаблон закрыт для менеджеров
	_, err = svc.GetTemplate(ctx, manager, tmpl.ID)
	requireCode(t, err, service.CodeForbidden)
	list, err := svc.ListTemplates(ctx, manager, true)
	require.NoError(t, err)
	assert.Empty(t, list)

	updated, err := svc.UpdateTemplate(ctx, admin, tmpl.ID, service.TemplateInput{
		Name:                 "Открытие магазина",
		IsActive:             true,
		AvailableForManagers: true,
		SubtaskNames:         []string{"Свет"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Открытие магазина", updated.Name)
	require.Len(t, updated.Entries, 1)

	got, err := svc.GetTemplate(ctx, manager, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, tmpl.ID, got.ID)

	_, err = svc.UpdateTemplate(ctx, admin, tmpl.ID, service.TemplateInput{Name: "X", ItemIDs: []uuid.UUID{uuid.New()}})
	requireCode(t, err, service.CodeValidation)

	// неудачное обновление откатывается целиком
	got, err = svc.GetTemplate(ctx, admin, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Открытие магазина", got.Name)

	items, err := svc.ListSubtaskItems(ctx, true)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = svc.UpdateSubtaskItem(ctx, admin, cash.ID, service.ItemInput{Name: "Касса", IsActive: false})
	require.NoError(t, err)
	items, err = svc.ListSubtaskItems(ctx, true)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	deleted, err := svc.DeleteTemplate(ctx, admin, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Открытие магазина", deleted.Name)

	_, err = svc.GetTemplate(ctx, admin, tmpl.ID)
	requireCode(t, err, service.CodeNotFound)
}
