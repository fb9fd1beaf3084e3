package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/models/template"
	"shiftTracker/internal/models/user"
	"shiftTracker/internal/service"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type File struct {
	Users     []User     `yaml:"users"`
	Items     []Item     `yaml:"items"`
	Templates []Template `yaml:"templates"`
}

type User struct {
	Username string    `yaml:"username"`
	Password string    `yaml:"password"`
	FullName string    `yaml:"full_name"`
	Email    string    `yaml:"email"`
	Role     user.Role `yaml:"role"`
}

type Item struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Inactive    bool   `yaml:"inactive"`
}

type Template struct {
	Name                 string   `yaml:"name"`
	Description          string   `yaml:"description"`
	Inactive             bool     `yaml:"inactive"`
	AvailableForManagers bool     `yaml:"available_for_managers"`
	Subtasks             []string `yaml:"subtasks"`
}

type Users interface {
	Register(ctx context.Context, in service.RegisterInput) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
}

type Templates interface {
	ListTemplates(ctx context.Context, u *user.User, onlyActive bool) ([]*template.TaskTemplate, error)
	CreateTemplate(ctx context.Context, u *user.User, in service.TemplateInput) (*template.TaskTemplate, error)
	ListSubtaskItems(ctx context.Context, onlyActive bool) ([]*template.SubtaskItem, error)
	CreateSubtaskItem(ctx context.Context, u *user.User, in service.ItemInput) (*template.SubtaskItem, error)
}

// Result - сколько записей создано, существующие пропускаются
type Result struct {
	Users     int
	Items     int
	Templates int
	Skipped   int
}

func Parse(r io.Reader) (*File, error) {
	var f File
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("ошибка парсинга seed файла: %w", err)
	}
	return &f, nil
}

func Load(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не могу открыть %s: %w", path, err)
	}
	defer file.Close()
	return Parse(file)
}

// Apply создаёт пользователей, объекты подзадач и шаблоны.
// Шаблоны и объекты создаются от имени первого администратора из файла или уже существующего
func Apply(ctx context.Context, f *File, users Users, templates Templates) (*Result, error) {
	res := &Result{}

	var admin *user.User
	for _, in := range f.Users {
		u, err := users.GetUserByUsername(ctx, strings.TrimSpace(in.Username))
		switch {
		case err == nil:
			res.Skipped++
		case service.HasCode(err, service.CodeNotFound):
			u, err = users.Register(ctx, service.RegisterInput{
				Username: in.Username,
				Password: in.Password,
				FullName: in.FullName,
				Email:    in.Email,
				Role:     in.Role,
			})
			if err != nil {
				return res, fmt.Errorf("пользователь %s: %w", in.Username, err)
			}
			res.Users++
			logger.Info("Seed: Пользователь создан", zap.String("username", u.Username), zap.String("role", string(u.Role)))
		default:
			return res, fmt.Errorf("пользователь %s: %w", in.Username, err)
		}

		if admin == nil && u.CanManageTemplates() {
			admin = u
		}
	}

	if len(f.Items) == 0 && len(f.Templates) == 0 {
		return res, nil
	}
	if admin == nil {
		return res, errors.New("для шаблонов и объектов подзадач нужен администратор в списке users")
	}

	existingItems, err := templates.ListSubtaskItems(ctx, false)
	if err != nil {
		return res, err
	}
	itemNames := make(map[string]bool, len(existingItems))
	for _, item := range existingItems {
		itemNames[item.Name] = true
	}

	for _, in := range f.Items {
		name := strings.TrimSpace(in.Name)
		if itemNames[name] {
			res.Skipped++
			continue
		}
		if _, err := templates.CreateSubtaskItem(ctx, admin, service.ItemInput{
			Name:        name,
			Description: in.Description,
			IsActive:    !in.Inactive,
		}); err != nil {
			return res, fmt.Errorf("объект подзадачи %s: %w", name, err)
		}
		itemNames[name] = true
		res.Items++
	}

	existingTemplates, err := templates.ListTemplates(ctx, admin, false)
	if err != nil {
		return res, err
	}
	templateNames := make(map[string]bool, len(existingTemplates))
	for _, t := range existingTemplates {
		templateNames[t.Name] = true
	}

	for _, in := range f.Templates {
		name := strings.TrimSpace(in.Name)
		if templateNames[name] {
			res.Skipped++
			continue
		}
		// объекты подзадач переиспользуются по названию
		if _, err := templates.CreateTemplate(ctx, admin, service.TemplateInput{
			Name:                 name,
			Description:          in.Description,
			IsActive:             !in.Inactive,
			AvailableForManagers: in.AvailableForManagers,
			SubtaskNames:         in.Subtasks,
		}); err != nil {
			return res, fmt.Errorf("шаблон %s: %w", name, err)
		}
		templateNames[name] = true
		res.Templates++
	}

	logger.Info("Seed: Заполнение завершено",
		zap.Int("users", res.Users),
		zap.Int("items", res.Items),
		zap.Int("templates", res.Templates),
		zap.Int("skipped", res.Skipped))
	return res, nil
}
