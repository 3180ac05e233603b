package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/quizdeck/quizdeck/internal/pkg/middleware"
	"github.com/quizdeck/quizdeck/internal/pkg/session"
)

// Router installs a group of routes on the fiber app.
type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App) {
	// Session store and the global UserContext middleware must be in place
	// before any route group that relies on authentication.
	session.NewSessionStore()
	app.Use(middleware.UserContextMiddleware)

	setup(app, NewApiRouter())
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
