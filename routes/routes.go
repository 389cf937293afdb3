package routes

import (
	"rewmo/config"
	"rewmo/controllers/admin"
	"rewmo/controllers/callback"
	"rewmo/controllers/member"
	"rewmo/middlewares"
	"rewmo/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Config   *config.Config
	Clicks   *services.ClickLedger
	Ledger   *services.Ledger
	Importer *services.Importer
	Payouts  *services.PayoutProcessor
	Feeds    *services.FeedClient
}

func Setup(app *fiber.App, d Deps) {
	memberHandler := &member.Handler{Clicks: d.Clicks, Ledger: d.Ledger, Payouts: d.Payouts}
	adminHandler := &admin.Handler{Ledger: d.Ledger, Importer: d.Importer, Payouts: d.Payouts, Feeds: d.Feeds}
	postbackHandler := &callback.Handler{Importer: d.Importer}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	memberAuth := middlewares.MemberAuth(d.Config.GatewaySecret)
	app.Get("/go/:retailer", memberAuth, memberHandler.Redirect)

	memberroutes := app.Group("/member", memberAuth)
	memberroutes.Post("/link", memberHandler.CreateLink)
	memberroutes.Get("/balance", memberHandler.Balance)
	memberroutes.Get("/payouts", memberHandler.PayoutHistory)

	//networks
	app.Post("/postback/:network", middlewares.PostbackAuth(d.Config.PostbackKey), postbackHandler.Postback)

	adminroutes := app.Group("/admin", middlewares.AdminAuth(d.Config.AdminCode, d.Config.AdminSecret))

	adminroutes.Post("/imports/preview", adminHandler.PreviewImport)
	adminroutes.Post("/imports/fetch", adminHandler.FetchImport)
	adminroutes.Get("/imports/:id", adminHandler.GetImport)
	adminroutes.Post("/imports/:id/commit", adminHandler.CommitImport)
	adminroutes.Post("/imports/:id/discard", adminHandler.DiscardImport)

	adminroutes.Get("/commissions", adminHandler.ListCommissions)
	adminroutes.Post("/commissions/approve", adminHandler.ApproveMany)
	adminroutes.Post("/commissions/:id/approve", adminHandler.Approve)
	adminroutes.Post("/commissions/:id/paid", adminHandler.MarkPaid)
	adminroutes.Post("/commissions/:id/assign", adminHandler.Assign)

	adminroutes.Post("/payouts", adminHandler.CreatePayout)
	adminroutes.Get("/members/:id/balance", adminHandler.MemberBalance)
	adminroutes.Get("/members/:id/payouts", adminHandler.MemberPayouts)
	adminroutes.Post("/members/:id/rebuild", adminHandler.RebuildBalance)
}
