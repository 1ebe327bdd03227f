package scheduler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playout-hub/scheduler/internal/app/catalog"
	"github.com/playout-hub/scheduler/internal/platform/metrics"
	"github.com/playout-hub/scheduler/internal/recurrence"
	"github.com/playout-hub/scheduler/internal/timeline"
)

var (
	mutationCounter = metrics.NewCounterVec(metrics.Opts{
		Name: "scheduler_mutations_total",
		Help: "Schedule mutations by operation and result.",
	}, []string{"op", "result"})
	saveCounter = metrics.NewCounterVec(metrics.Opts{
		Name: "scheduler_saves_total",
		Help: "Day saves by result.",
	}, []string{"result"})
	dirtyGauge = metrics.NewGauge(metrics.Opts{
		Name: "scheduler_day_dirty",
		Help: "1 when the open day has unsaved mutations.",
	})
	dayEventsGauge = metrics.NewGauge(metrics.Opts{
		Name: "scheduler_day_events",
		Help: "Number of events on the open day.",
	})
)

func init() {
	metrics.Default.MustRegister(mutationCounter, saveCounter, dirtyGauge, dayEventsGauge)
}

type Handler struct {
	Schedule *Service
	Media    *catalog.Service
	Loc      *time.Location
}

func NewHandler(schedule *Service, media *catalog.Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{Schedule: schedule, Media: media, Loc: loc}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/api/v1/days/{day}/open", h.handleOpenDay)
	r.Get("/api/v1/day", h.handleGetDay)
	r.Delete("/api/v1/day/events", h.handleDeleteDay)
	r.Get("/api/v1/day/export.ics", h.handleExportICS)

	r.Post("/api/v1/events", h.handlePlaceEvent)
	r.Post("/api/v1/events/repeating", h.handleAddRepeating)
	r.Patch("/api/v1/events/{eventID}", h.handleUpdateEvent)
	r.Delete("/api/v1/events/{eventID}", h.handleDeleteEvent)

	r.Post("/api/v1/automation", h.handleAutomate)
	r.Post("/api/v1/save", h.handleSave)

	r.Get("/api/v1/media", h.handleListMedia)
	r.Post("/api/v1/media", h.handleRegisterMedia)

	return r
}

type eventView struct {
	ID              string `json:"id"`
	SourceKey       string `json:"source_key"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationSeconds int64  `json:"duration_seconds"`
	Color           string `json:"color"`
	Label           string `json:"label"`
}

func toView(ev timeline.Event) eventView {
	return eventView{
		ID:              ev.ID,
		SourceKey:       ev.SourceKey,
		Start:           ev.Start.Format(time.RFC3339),
		End:             ev.End.Format(time.RFC3339),
		DurationSeconds: int64(ev.Duration() / time.Second),
		Color:           ev.Color,
		Label:           ev.DisplayLabel(),
	}
}

func toViews(events []timeline.Event) []eventView {
	views := make([]eventView, 0, len(events))
	for _, ev := range events {
		views = append(views, toView(ev))
	}
	return views
}

type dayResponse struct {
	Day    string      `json:"day"`
	Dirty  bool        `json:"dirty"`
	Events []eventView `json:"events"`
}

func (h *Handler) currentDay() (dayResponse, error) {
	day, ok := h.Schedule.Day()
	if !ok {
		return dayResponse{}, ErrNoOpenDay
	}
	events, err := h.Schedule.Events()
	if err != nil {
		return dayResponse{}, err
	}
	return dayResponse{
		Day:    day.Format(DayKey),
		Dirty:  h.Schedule.IsDirty(),
		Events: toViews(events),
	}, nil
}

func (h *Handler) handleOpenDay(w http.ResponseWriter, r *http.Request) {
	day, err := time.ParseInLocation(DayKey, chi.URLParam(r, "day"), h.Loc)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "day must be formatted as 2006-01-02")
		return
	}
	discard := r.URL.Query().Get("discard") == "true"

	events, err := h.Schedule.OpenDay(r.Context(), day, discard)
	if err != nil {
		if errors.Is(err, ErrUnsavedChanges) {
			h.writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.syncDirtyGauge()
	h.writeJSON(w, http.StatusOK, dayResponse{
		Day:    day.Format(DayKey),
		Dirty:  false,
		Events: toViews(events),
	})
}

func (h *Handler) handleGetDay(w http.ResponseWriter, r *http.Request) {
	resp, err := h.currentDay()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type placeEventRequest struct {
	SourceKey       string  `json:"source_key"`
	DurationSeconds int64   `json:"duration_seconds"`
	Start           string  `json:"start,omitempty"`
	Offset          float64 `json:"offset,omitempty"`
	Extent          float64 `json:"extent,omitempty"`
}

func (h *Handler) handlePlaceEvent(w http.ResponseWriter, r *http.Request) {
	var req placeEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	duration := time.Duration(req.DurationSeconds) * time.Second

	var ev timeline.Event
	var err error
	if req.Start != "" {
		var candidate time.Time
		candidate, err = time.Parse(time.RFC3339, req.Start)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "start must be RFC 3339")
			return
		}
		ev, err = h.Schedule.PlaceAt(req.SourceKey, candidate, duration)
	} else {
		ev, err = h.Schedule.PlaceDrop(req.SourceKey, duration, req.Offset, req.Extent)
	}
	if err != nil {
		mutationCounter.Inc("place", "rejected")
		h.writeServiceError(w, err)
		return
	}
	mutationCounter.Inc("place", "ok")
	h.syncDirtyGauge()
	h.writeJSON(w, http.StatusCreated, toView(ev))
}

type repeatingRequest struct {
	SourceKey       string `json:"source_key"`
	DurationSeconds int64  `json:"duration_seconds"`
	Start           string `json:"start"`
	Frequency       string `json:"frequency"`
	Interval        int    `json:"interval,omitempty"`
	Count           int    `json:"count,omitempty"`
	Until           string `json:"until,omitempty"`
}

func (h *Handler) handleAddRepeating(w http.ResponseWriter, r *http.Request) {
	var req repeatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	first, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "start must be RFC 3339")
		return
	}
	rule := recurrence.Rule{
		Freq:     recurrence.Frequency(req.Frequency),
		Interval: req.Interval,
		Count:    req.Count,
	}
	if req.Until != "" {
		until, err := time.Parse(time.RFC3339, req.Until)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "until must be RFC 3339")
			return
		}
		rule.Until = until
	}

	duration := time.Duration(req.DurationSeconds) * time.Second
	batch, err := h.Schedule.AddRepeating(req.SourceKey, first, duration, rule)
	if err != nil {
		mutationCounter.Inc("repeat", "rejected")
		h.writeServiceError(w, err)
		return
	}
	mutationCounter.Inc("repeat", "ok")
	h.syncDirtyGauge()
	h.writeJSON(w, http.StatusCreated, toViews(batch))
}

type updateEventRequest struct {
	Start           string `json:"start,omitempty"`
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
}

func (h *Handler) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	// One field per update: a combined move+resize could half-apply when
	// the second mutation is rejected.
	if (req.Start == "") == (req.DurationSeconds == 0) {
		h.writeError(w, http.StatusBadRequest, "provide exactly one of start or duration_seconds")
		return
	}

	var ev timeline.Event
	var err error
	if req.Start != "" {
		var newStart time.Time
		newStart, err = time.Parse(time.RFC3339, req.Start)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "start must be RFC 3339")
			return
		}
		ev, err = h.Schedule.MoveEvent(eventID, newStart)
		if err != nil {
			mutationCounter.Inc("move", "rejected")
			h.writeServiceError(w, err)
			return
		}
		mutationCounter.Inc("move", "ok")
	} else {
		ev, err = h.Schedule.ResizeEvent(eventID, time.Duration(req.DurationSeconds)*time.Second)
		if err != nil {
			mutationCounter.Inc("resize", "rejected")
			h.writeServiceError(w, err)
			return
		}
		mutationCounter.Inc("resize", "ok")
	}
	h.syncDirtyGauge()
	h.writeJSON(w, http.StatusOK, toView(ev))
}

func (h *Handler) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.Schedule.DeleteEvent(chi.URLParam(r, "eventID")); err != nil {
		mutationCounter.Inc("delete", "rejected")
		h.writeServiceError(w, err)
		return
	}
	mutationCounter.Inc("delete", "ok")
	h.syncDirtyGauge()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteDay(w http.ResponseWriter, r *http.Request) {
	removed, err := h.Schedule.DeleteAllForDay()
	if err != nil {
		mutationCounter.Inc("clear", "rejected")
		h.writeServiceError(w, err)
		return
	}
	mutationCounter.Inc("clear", "ok")
	h.syncDirtyGauge()
	h.writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

type automationRequest struct {
	Items []struct {
		SourceKey       string `json:"source_key"`
		DurationSeconds int64  `json:"duration_seconds"`
	} `json:"items"`
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
}

func (h *Handler) handleAutomate(w http.ResponseWriter, r *http.Request) {
	var req automationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	windowStart, err := time.Parse(time.RFC3339, req.WindowStart)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "window_start must be RFC 3339")
		return
	}
	windowEnd, err := time.Parse(time.RFC3339, req.WindowEnd)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "window_end must be RFC 3339")
		return
	}
	items := make([]timeline.PlanItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, timeline.PlanItem{
			SourceKey: item.SourceKey,
			Duration:  time.Duration(item.DurationSeconds) * time.Second,
		})
	}

	batch, err := h.Schedule.Automate(items, windowStart, windowEnd)
	if err != nil {
		mutationCounter.Inc("automate", "rejected")
		h.writeServiceError(w, err)
		return
	}
	mutationCounter.Inc("automate", "ok")
	h.syncDirtyGauge()
	h.writeJSON(w, http.StatusCreated, toViews(batch))
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := h.Schedule.Save(r.Context()); err != nil {
		saveCounter.Inc("error")
		if errors.Is(err, ErrNoOpenDay) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	saveCounter.Inc("ok")
	h.syncDirtyGauge()
	resp, err := h.currentDay()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleExportICS(w http.ResponseWriter, _ *http.Request) {
	payload, err := h.Schedule.ExportICS()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.ics"`)
	_, _ = w.Write([]byte(payload))
}

func (h *Handler) handleListMedia(w http.ResponseWriter, r *http.Request) {
	items, err := h.Media.List(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleRegisterMedia(w http.ResponseWriter, r *http.Request) {
	var req catalog.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	item, err := h.Media.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrSourceKeyRequired), errors.Is(err, catalog.ErrInvalidDuration):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, item)
}

// writeServiceError maps schedule errors onto HTTP statuses. Validation
// failures that depend on the current schedule state are conflicts;
// rejections of the request itself are unprocessable.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, timeline.ErrInThePast),
		errors.Is(err, timeline.ErrInsufficientWindow),
		errors.Is(err, timeline.ErrInvalidInterval),
		errors.Is(err, timeline.ErrInvalidWindow),
		errors.Is(err, timeline.ErrInvalidExtent),
		errors.Is(err, timeline.ErrOutsideWindow),
		errors.Is(err, timeline.ErrNoMediaItems),
		errors.Is(err, recurrence.ErrUnknownFrequency),
		errors.Is(err, recurrence.ErrUnboundedRule),
		errors.Is(err, recurrence.ErrTooManyOccurrences),
		errors.Is(err, ErrOutsideOpenDay):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, timeline.ErrOverlap),
		errors.Is(err, timeline.ErrNoSlotAvailable),
		errors.Is(err, ErrUnsavedChanges),
		errors.Is(err, ErrResizeDisabled):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, timeline.ErrEventNotFound),
		errors.Is(err, ErrNoOpenDay):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		h.writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (h *Handler) syncDirtyGauge() {
	if h.Schedule.IsDirty() {
		dirtyGauge.Set(1)
	} else {
		dirtyGauge.Set(0)
	}
	if events, err := h.Schedule.Events(); err == nil {
		dayEventsGauge.Set(float64(len(events)))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
