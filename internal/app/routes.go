package app

import (
	"net/http"
	"shiftTracker/internal/handlers"
	"shiftTracker/internal/middleware"
	"shiftTracker/internal/models/user"
	"shiftTracker/internal/render"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func (a *App) routes(view *render.Renderer) http.Handler {
	taskHandler := handlers.NewTaskHandler(a.tasks, a.templates, view)
	managementHandler := handlers.NewManagementHandler(a.tasks, a.templates, view)
	templateAPI := handlers.NewTemplateAPIHandler(a.templates)
	authHandler := handlers.NewAuthHandler(a.auth, handlers.CookieConfig{
		Name:   a.config.Auth.CookieName,
		Secure: a.config.Auth.SecureCookie,
	}, view)

	canCreateTasks := middleware.RequireCapability((*user.User).CanCreateTasks)
	canManageTemplates := middleware.RequireCapability((*user.User).CanManageTemplates)

	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.StripSlashes)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	if a.config.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(a.config.Server.RequestTimeout))
	}

	r.Get("/health", taskHandler.HealthCheck) // GET /health

	r.Route("/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(a.config.Auth.LoginRateLimit, http.MethodPost))

			r.Get("/login", authHandler.LoginForm) // GET /users/login
			r.Post("/login", authHandler.Login)    // POST /users/login
		})
		r.Get("/logout", authHandler.Logout)  // GET /users/logout
		r.Post("/logout", authHandler.Logout) // POST /users/logout
	})

	authenticate := middleware.Authenticate(a.auth, a.config.Auth.CookieName)

	// CORS стоит до аутентификации, preflight приходит без cookie
	r.Route("/api/templates", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   a.config.Server.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           int((5 * time.Minute).Seconds()),
		}))
		r.Use(authenticate)

		r.Get("/", templateAPI.List)                      // GET /api/templates
		r.Get("/subtask-items", templateAPI.SubtaskItems) // GET /api/templates/subtask-items
		r.Get("/{id}", templateAPI.Get)                   // GET /api/templates/{id}

		r.With(canManageTemplates).Post("/", templateAPI.Create)       // POST /api/templates
		r.With(canManageTemplates).Put("/{id}", templateAPI.Update)    // PUT /api/templates/{id}
		r.With(canManageTemplates).Delete("/{id}", templateAPI.Delete) // DELETE /api/templates/{id}
	})

	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/", taskHandler.Dashboard) // GET /?mode=daily|all&date=YYYY-MM-DD

		r.Route("/task", func(r chi.Router) {
			r.With(canCreateTasks).Get("/create", taskHandler.CreateTaskForm) // GET /task/create
			r.With(canCreateTasks).Post("/create", taskHandler.CreateTask)    // POST /task/create

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.TaskDetail) // GET /task/{id}

				r.With(canCreateTasks).Get("/edit", taskHandler.EditTaskForm)  // GET /task/{id}/edit
				r.With(canCreateTasks).Post("/edit", taskHandler.EditTask)     // POST /task/{id}/edit
				r.With(canCreateTasks).Post("/delete", taskHandler.DeleteTask) // POST /task/{id}/delete

				r.Get("/take", taskHandler.TakeForm) // GET /task/{id}/take
				r.Post("/take", taskHandler.Take)    // POST /task/{id}/take
			})
		})

		r.Route("/subtask/{id}", func(r chi.Router) {
			r.Get("/complete", taskHandler.CompleteForm) // GET /subtask/{id}/complete
			r.Post("/complete", taskHandler.Complete)    // POST /subtask/{id}/complete

			r.Post("/update", taskHandler.UpdateSubtask) // POST /subtask/{id}/update
			r.Post("/delete", taskHandler.DeleteSubtask) // POST /subtask/{id}/delete
		})

		r.Route("/management", func(r chi.Router) {
			r.Use(canCreateTasks)

			r.Get("/", managementHandler.Dashboard) // GET /management

			r.Get("/task/create", taskHandler.CreateTaskForm) // GET /management/task/create?manual=1
			r.Post("/task/create", taskHandler.CreateTask)    // POST /management/task/create

			r.Group(func(r chi.Router) {
				r.Use(canManageTemplates)

				r.Get("/template/create", managementHandler.CreateTemplateForm)   // GET /management/template/create
				r.Post("/template/create", managementHandler.CreateTemplate)      // POST /management/template/create
				r.Get("/template/{id}/edit", managementHandler.EditTemplateForm)  // GET /management/template/{id}/edit
				r.Post("/template/{id}/edit", managementHandler.UpdateTemplate)   // POST /management/template/{id}/edit
				r.Post("/template/{id}/delete", managementHandler.DeleteTemplate) // POST /management/template/{id}/delete

				r.Get("/item/create", managementHandler.CreateItemForm)  // GET /management/item/create
				r.Post("/item/create", managementHandler.CreateItem)     // POST /management/item/create
				r.Get("/item/{id}/edit", managementHandler.EditItemForm) // GET /management/item/{id}/edit
				r.Post("/item/{id}/edit", managementHandler.UpdateItem)  // POST /management/item/{id}/edit
			})
		})
	})

	if a.config.Server.Tracing {
		return otelhttp.NewHandler(r, "shiftTracker")
	}
	return r
}
