// Package audithttp serves the role-change audit timeline over HTTP.
package audithttp

import (
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/haulstack/haulstack/internal/audit"
	"github.com/haulstack/haulstack/internal/platform/httpx"
	"github.com/haulstack/haulstack/internal/shared"
)

const (
	defaultDateRange  = 30 * 24 * time.Hour
	maxDateRangeHours = 24 * 365
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.Entry, error)
}

// Handler serves timeline queries and CSV exports.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	now     func() time.Time
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service TimelineService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

type entryResponse struct {
	ID                  string    `json:"id"`
	TargetUserID        int64     `json:"target_user_id"`
	TargetUsername      string    `json:"target_username"`
	PerformedBy         int64     `json:"performed_by"`
	PerformedByUsername string    `json:"performed_by_username"`
	OldRole             string    `json:"old_role"`
	NewRole             string    `json:"new_role"`
	Reason              string    `json:"reason"`
	Timestamp           time.Time `json:"timestamp"`
}

type pagingResponse struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

func toEntryResponse(e audit.Entry) entryResponse {
	return entryResponse{
		ID:                  e.ID.String(),
		TargetUserID:        e.TargetUserID,
		TargetUsername:      e.TargetUsername,
		PerformedBy:         e.PerformedBy,
		PerformedByUsername: e.PerformedByUsername,
		OldRole:             e.OldRole,
		NewRole:             e.NewRole,
		Reason:              e.Reason,
		Timestamp:           e.Timestamp,
	}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	rows := make([]entryResponse, 0, len(result.Rows))
	for _, e := range result.Rows {
		rows = append(rows, toEntryResponse(e))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"rows": rows,
		"paging": pagingResponse{
			Page:     result.Paging.Page,
			PageSize: result.Paging.PageSize,
			HasNext:  result.Paging.HasNext,
			PrevPage: result.Paging.PrevPage,
			NextPage: result.Paging.NextPage,
		},
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	header := []string{"timestamp", "target_user", "performed_by", "old_role", "new_role", "reason"}
	if err := writer.Write(header); err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	for _, e := range rows {
		record := []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			e.TargetUsername,
			e.PerformedByUsername,
			e.OldRole,
			e.NewRole,
			e.Reason,
		}
		if err := writer.Write(record); err != nil {
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="role-changes.csv"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	now := h.now().UTC()
	toStr := strings.TrimSpace(r.URL.Query().Get("to"))
	if toStr == "" {
		toStr = now.Format("2006-01-02")
	}
	toTime, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return audit.TimelineFilters{}, shared.Validationf("invalid 'to' date, want YYYY-MM-DD")
	}
	// The upper bound is inclusive of the whole day.
	toTime = toTime.Add(24*time.Hour - time.Nanosecond)

	fromStr := strings.TrimSpace(r.URL.Query().Get("from"))
	if fromStr == "" {
		fromStr = toTime.Add(-defaultDateRange).Format("2006-01-02")
	}
	fromTime, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return audit.TimelineFilters{}, shared.Validationf("invalid 'from' date, want YYYY-MM-DD")
	}
	if fromTime.After(toTime) {
		return audit.TimelineFilters{}, shared.Validationf("'from' must not be after 'to'")
	}
	if toTime.Sub(fromTime) > maxDateRangeHours*time.Hour {
		return audit.TimelineFilters{}, shared.Validationf("date range too wide, one year at most")
	}

	filters := audit.TimelineFilters{From: fromTime, To: toTime, Page: 1}
	if v := strings.TrimSpace(r.URL.Query().Get("target_user_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return audit.TimelineFilters{}, shared.Validationf("invalid target_user_id")
		}
		filters.TargetUserID = id
	}
	if v := strings.TrimSpace(r.URL.Query().Get("performed_by")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return audit.TimelineFilters{}, shared.Validationf("invalid performed_by")
		}
		filters.PerformedBy = id
	}
	if v := strings.TrimSpace(r.URL.Query().Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page <= 0 {
			return audit.TimelineFilters{}, shared.Validationf("invalid page")
		}
		filters.Page = page
	}
	if v := strings.TrimSpace(r.URL.Query().Get("page_size")); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size <= 0 {
			return audit.TimelineFilters{}, shared.Validationf("invalid page_size")
		}
		filters.PageSize = size
	}
	return filters, nil
}
