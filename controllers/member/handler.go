package member

import (
	"strings"

	"rewmo/controllers"
	"rewmo/helpers"
	"rewmo/middlewares"
	"rewmo/providers"
	"rewmo/services"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	Clicks  *services.ClickLedger
	Ledger  *services.Ledger
	Payouts *services.PayoutProcessor
}

type LinkRequest struct {
	RetailerID string `json:"retailer_id" validate:"required,max=64"`
	Network    string `json:"network" validate:"required,max=32"`
	URL        string `json:"url" validate:"required,url"`
}

// link records the click and builds the outbound URL. Click persistence is
// fire-and-forget, so only a bad destination can fail here, and it is
// rejected before any click is recorded.
func (h *Handler) link(c *fiber.Ctx, req LinkRequest) (string, string, error) {
	if _, err := providers.ParseDestination(req.URL); err != nil {
		return "", "", err
	}

	subID := h.Clicks.Record(services.ClickInput{
		MemberID:   middlewares.MemberID(c),
		RetailerID: req.RetailerID,
		Network:    req.Network,
		UserAgent:  c.Get(fiber.HeaderUserAgent),
		IP:         c.IP(),
	})

	url, err := providers.GetNetwork(req.Network).BuildLink(providers.LinkRequest{
		RetailerID:  req.RetailerID,
		Destination: req.URL,
		SubID:       subID,
	})
	return subID, url, err
}

// Redirect handles GET /go/:retailer?network=&url= and sends the member on
// to the retailer.
func (h *Handler) Redirect(c *fiber.Ctx) error {
	req := LinkRequest{
		RetailerID: c.Params("retailer"),
		Network:    strings.TrimSpace(c.Query("network")),
		URL:        c.Query("url"),
	}
	if err := controllers.Validate(req); err != nil {
		return helpers.JSONError(c, "RETAILER_NETWORK_AND_URL_REQUIRED")
	}

	_, url, err := h.link(c, req)
	if err != nil {
		return helpers.JSONError(c, "INVALID_DESTINATION")
	}
	return c.Redirect(url, fiber.StatusFound)
}

func (h *Handler) CreateLink(c *fiber.Ctx) error {
	var req LinkRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if err := controllers.Validate(req); err != nil {
		return helpers.JSONError(c, "RETAILER_NETWORK_AND_URL_REQUIRED")
	}

	subID, url, err := h.link(c, req)
	if err != nil {
		return helpers.JSONError(c, "INVALID_DESTINATION")
	}
	return helpers.JSONSuccess(c, "Link created", fiber.Map{
		"sub_id": subID,
		"url":    url,
	})
}

func (h *Handler) Balance(c *fiber.Ctx) error {
	bal, err := h.Ledger.Balance(c.UserContext(), middlewares.MemberID(c))
	if err != nil {
		return controllers.ServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Balance retrieved successfully", bal)
}

func (h *Handler) PayoutHistory(c *fiber.Ctx) error {
	payouts, err := h.Payouts.History(c.UserContext(), middlewares.MemberID(c))
	if err != nil {
		return controllers.ServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Payouts retrieved successfully", payouts)
}
