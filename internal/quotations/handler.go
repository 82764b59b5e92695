package quotations

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sfv-tech/sfv-ops/internal/platform/httpx"
	"github.com/sfv-tech/sfv-ops/internal/shared"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	pdf      *PDFRenderer
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, pdf *PDFRenderer) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		pdf:      pdf,
		validate: validator.New(),
	}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/export", h.ExportCSV)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/pdf", h.ExportPDF)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Put("/{id}/approve", h.Approve)
	r.Delete("/{id}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req, err := parseListRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	summaries, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list quotations failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"quotations": summaries, "total": total})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid quotation id")
		return
	}
	quotation, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get quotation failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotation)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req CreateQuotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Create(r.Context(), req, actor)
	if err != nil {
		h.logger.Error("create quotation failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid quotation id")
		return
	}
	var req CreateQuotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Update(r.Context(), id, req, actor); err != nil {
		h.logger.Error("update quotation failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

// Approve transitions the quotation to Approved. Repeat approval is a
// conflict, not a validation failure, and responds 409.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid quotation id")
		return
	}
	if err := h.service.Approve(r.Context(), id, actor); err != nil {
		h.logger.Error("approve quotation failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"approved": true})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid quotation id")
		return
	}
	if err := h.service.Delete(r.Context(), id, actor); err != nil {
		h.logger.Error("delete quotation failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// csvExportLimit bounds a single CSV export. The response carries the total
// match count so callers can tell when the file is truncated.
const csvExportLimit = 1000

func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	req, err := parseListRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	req.Limit = csvExportLimit
	req.Offset = 0
	summaries, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("export quotations failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=quotations-%s.csv", time.Now().Format("20060102")))
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	w.Header().Set("X-Export-Limit", strconv.Itoa(csvExportLimit))
	if err := WriteCSV(w, summaries); err != nil {
		h.logger.Error("write quotations csv failed", "error", err)
	}
}

func (h *Handler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid quotation id")
		return
	}
	quotation, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get quotation for pdf failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	payload, err := h.pdf.Render(quotation)
	if err != nil {
		h.logger.Error("render quotation pdf failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", quotation.RefNo))
	_, _ = w.Write(payload)
}

func parseListRequest(r *http.Request) (ListQuotationsRequest, error) {
	req := ListQuotationsRequest{Limit: 50}
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		status := Status(v)
		if status != StatusDraft && status != StatusApproved {
			return req, fmt.Errorf("unknown status %q", v)
		}
		req.Status = &status
	}
	if v := q.Get("created_by"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, fmt.Errorf("invalid created_by %q", v)
		}
		req.CreatedBy = &id
	}
	req.Search = q.Get("search")
	if v := q.Get("date_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return req, fmt.Errorf("invalid date_from %q", v)
		}
		req.DateFrom = &t
	}
	if v := q.Get("date_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return req, fmt.Errorf("invalid date_to %q", v)
		}
		req.DateTo = &t
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= 1000 {
		req.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		req.Offset = v
	}
	return req, nil
}
