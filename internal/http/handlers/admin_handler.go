package handlers

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/docstore"
	"storefront/internal/domain"
	"storefront/internal/export"
	applog "storefront/internal/log"
	"storefront/internal/services"
)

type AdminHandler struct {
	Reports     *services.ReportService
	Audit       *services.AuditService
	Maintenance *services.MaintenanceService
	Checkout    *services.CheckoutService
}

const dateLayout = "2006-01-02"

// dateRange reads from/to as YYYY-MM-DD in UTC. to covers its whole day.
func dateRange(c *fiber.Ctx) (from, to *time.Time, err error) {
	if s := c.Query("from"); s != "" {
		t, perr := time.Parse(dateLayout, s)
		if perr != nil {
			return nil, nil, domain.Invalid("from", "must be YYYY-MM-DD")
		}
		from = &t
	}
	if s := c.Query("to"); s != "" {
		t, perr := time.Parse(dateLayout, s)
		if perr != nil {
			return nil, nil, domain.Invalid("to", "must be YYYY-MM-DD")
		}
		t = t.Add(24*time.Hour - time.Nanosecond)
		to = &t
	}
	return from, to, nil
}

func optionalFloat(c *fiber.Ctx, key string) (*float64, error) {
	s := strings.TrimSpace(c.Query(key))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil, domain.Invalid(key, "must be a non-negative number")
	}
	return &v, nil
}

func reportFilter(c *fiber.Ctx) (domain.ReportFilter, error) {
	var f domain.ReportFilter
	var err error
	if f.From, f.To, err = dateRange(c); err != nil {
		return f, err
	}
	if f.MinTotal, err = optionalFloat(c, "min_total"); err != nil {
		return f, err
	}
	if f.MaxTotal, err = optionalFloat(c, "max_total"); err != nil {
		return f, err
	}
	f.Status = c.Query("status")
	f.PaymentMethod = c.Query("payment_method")
	return f, nil
}

// GET /api/v1/admin/dashboard
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	d, err := h.Reports.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(d)
}

// GET /api/v1/admin/reports/sales
func (h *AdminHandler) SalesReport(c *fiber.Ctx) error {
	f, err := reportFilter(c)
	if err != nil {
		return err
	}
	rep, err := h.Reports.SalesReport(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(rep)
}

// GET /api/v1/admin/reports/sales.xlsx
func (h *AdminHandler) SalesReportXLSX(c *fiber.Ctx) error {
	f, err := reportFilter(c)
	if err != nil {
		return err
	}
	rep, err := h.Reports.SalesReport(c.UserContext(), f)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	var buf bytes.Buffer
	if err := export.SalesReport(&buf, rep, now); err != nil {
		return err
	}
	applog.Audit(c, "admin.report.export", map[string]any{"rows": len(rep.Sales)})
	c.Set(fiber.HeaderContentType, export.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+export.Filename(now)+`"`)
	return c.Send(buf.Bytes())
}

// GET /api/v1/admin/audit
func (h *AdminHandler) AuditLog(c *fiber.Ctx) error {
	from, to, err := dateRange(c)
	if err != nil {
		return err
	}
	f := domain.AuditFilter{
		Action: domain.Action(strings.ToUpper(c.Query("action"))),
		Actor:  c.Query("actor"),
		From:   from,
		To:     to,
	}
	if f.Action != "" && !f.Action.Valid() {
		return domain.Invalid("action", "unknown action")
	}
	ov, err := h.Audit.Overview(c.UserContext(), f, c.QueryInt("limit", services.DefaultAuditLimit))
	if err != nil {
		return err
	}
	return c.JSON(ov)
}

type statusInput struct {
	Status string `json:"status" form:"status"`
}

// PUT /api/v1/admin/sales/:id/status
func (h *AdminHandler) UpdateSaleStatus(c *fiber.Ctx) error {
	id, err := docstore.ParseID("sale", c.Params("id"))
	if err != nil {
		return err
	}
	var in statusInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed body")
	}
	if err := h.Checkout.UpdateStatus(c.UserContext(), currentUser(c), id, strings.ToLower(in.Status)); err != nil {
		applog.Error(c, "admin.sales.update.fail", err, map[string]any{"sale_id": id.Hex()})
		return err
	}
	applog.Audit(c, "admin.sales.update", map[string]any{"sale_id": id.Hex(), "status": in.Status})
	return c.SendStatus(fiber.StatusNoContent)
}

// POST /api/v1/admin/maintenance/purge-empty-carts
func (h *AdminHandler) PurgeEmptyCarts(c *fiber.Ctx) error {
	n, err := h.Maintenance.PurgeEmptyCarts(c.UserContext(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"deleted": n})
}
