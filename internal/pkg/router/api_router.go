package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/quizdeck/quizdeck/app/controllers"
	"github.com/quizdeck/quizdeck/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Public
	v1.Post("/auth/register", controllers.HandleRegister)
	v1.Post("/auth/login", controllers.HandleLogin)
	v1.Post("/auth/logout", controllers.HandleLogout)
	v1.Get("/question-sets", controllers.HandleListQuestionSets)
	v1.Get("/question-sets/:id", controllers.HandleGetQuestionSet)

	// Content delivery, authenticated by the short-lived token minted
	// by the access check instead of a session.
	v1.Get("/question-sets/:id/content", middleware.ContentTokenAuthMiddleware(), controllers.HandleGetQuestionSetContent)

	// Payment provider callback, authenticated by HMAC signature.
	v1.Post("/payments/webhook", controllers.HandlePaymentWebhook)

	// Session authenticated
	authed := v1.Group("", middleware.RequireAPISessionAuth)
	authed.Get("/user/account", controllers.HandleGetUserAccount)
	authed.Get("/user/grants", controllers.HandleListUserGrants)
	authed.Post("/user/api-key", controllers.HandleIssueAPIKey)
	authed.Delete("/user/api-key", controllers.HandleRevokeAPIKey)
	authed.Get("/question-sets/:id/access", controllers.HandleCheckAccess)
	authed.Get("/question-sets/:id/questions/:index/reachable", controllers.HandleQuestionReachable)
	authed.Post("/redeem", controllers.HandleRedeemCode)

	// API key authenticated mirror for machine clients.
	keyed := v1.Group("/client", middleware.APIKeyAuthMiddleware())
	keyed.Get("/user/account", controllers.HandleGetUserAccount)
	keyed.Get("/user/grants", controllers.HandleListUserGrants)
	keyed.Get("/question-sets/:id/access", controllers.HandleCheckAccess)
	keyed.Get("/question-sets/:id/questions/:index/reachable", controllers.HandleQuestionReachable)

	// Admin
	admin := v1.Group("/admin", middleware.RequireAPIAdmin)
	admin.Post("/question-sets", controllers.HandleAdminCreateQuestionSet)
	admin.Post("/redeem-codes", controllers.HandleAdminCreateRedeemCodes)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
