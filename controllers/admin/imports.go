package admin

import (
	"strings"
	"time"

	"rewmo/controllers"
	"rewmo/helpers"
	"rewmo/services"

	"github.com/gofiber/fiber/v2"
)

type PreviewRequest struct {
	Network  string             `json:"network" validate:"required,max=32"`
	Filename string             `json:"filename" validate:"max=255"`
	Rows     []services.FeedRow `json:"rows" validate:"required,min=1"`
}

type FetchRequest struct {
	Network   string `json:"network" validate:"required,max=32"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// PreviewImport stages an earnings report. Multipart uploads carry the CSV
// under "file" with the network as a form field; anything else is JSON rows.
func (h *Handler) PreviewImport(c *fiber.Ctx) error {
	var req PreviewRequest

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return helpers.JSONError(c, "FILE_REQUIRED")
		}
		f, err := fh.Open()
		if err != nil {
			return helpers.JSONError(c, "FILE_UNREADABLE")
		}
		defer f.Close()

		rows, err := services.ParseCSV(f)
		if err != nil {
			return helpers.JSONErrorStatus(c, fiber.StatusUnprocessableEntity, "INVALID_CSV", err.Error())
		}
		req = PreviewRequest{Network: c.FormValue("network"), Filename: fh.Filename, Rows: rows}
	} else if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	if err := controllers.Validate(req); err != nil {
		return helpers.JSONError(c, "NETWORK_AND_ROWS_REQUIRED")
	}

	batch, summary, err := h.Importer.Stage(c.UserContext(), req.Network, req.Filename, req.Rows)
	if err != nil {
		return controllers.ServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Import staged", fiber.Map{
		"batch_id": batch.ID,
		"summary":  summary,
	})
}

// FetchImport pulls a network's report for the date range and stages it
// exactly like an upload.
func (h *Handler) FetchImport(c *fiber.Ctx) error {
	var req FetchRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if err := controllers.Validate(req); err != nil {
		return helpers.JSONError(c, "NETWORK_AND_DATES_REQUIRED")
	}

	from, _ := time.Parse(time.DateOnly, req.StartDate)
	to, _ := time.Parse(time.DateOnly, req.EndDate)
	if to.Before(from) {
		return helpers.JSONError(c, "INVALID_DATE_RANGE")
	}

	rows, err := h.Feeds.Fetch(c.UserContext(), req.Network, from, to)
	if err != nil {
		return controllers.ServiceError(c, err)
	}

	filename := req.Network + "_" + req.StartDate + "_" + req.EndDate
	batch, summary, err := h.Importer.Stage(c.UserContext(), req.Network, filename, rows)
	if err != nil {
		return controllers.ServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Import staged", fiber.Map{
		"batch_id": batch.ID,
		"summary":  summary,
	})
}

func (h *Handler) GetImport(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}
	batch, err := h.Importer.Batch(c.UserContext(), id)
	if err != nil {
		return controllers.ServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Import retrieved successfully", batch)
}

func (h *Handler) CommitImport(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}
	summary, err := h.Importer.Commit(c.UserContext(), id)
	if err != nil {
		return controllers.ServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Import committed", summary)
}

func (h *Handler) DiscardImport(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}
	if err := h.Importer.Discard(c.UserContext(), id); err != nil {
		return controllers.ServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Import discarded", fiber.Map{"batch_id": id})
}
