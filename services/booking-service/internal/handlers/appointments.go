package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

type AppointmentHandler struct {
	svc    *booking.Service
	logger *slog.Logger
}

func NewAppointmentHandler(svc *booking.Service, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, logger: logger}
}

type createAppointmentRequest struct {
	ProviderID      string `json:"provider_id"`
	StartAt         string `json:"start_at"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Channel         string `json:"channel"`
	Notes           string `json:"notes"`
}

type appointmentActionRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type appointmentResponse struct {
	AppointmentID   string  `json:"appointment_id"`
	RequesterID     string  `json:"requester_id"`
	ProviderID      string  `json:"provider_id"`
	StartAt         string  `json:"start_at"`
	EndAt           string  `json:"end_at"`
	DurationMinutes int     `json:"duration_minutes"`
	Status          string  `json:"status"`
	Channel         string  `json:"channel"`
	MeetingRef      *string `json:"meeting_ref,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	CancelReason    string  `json:"cancel_reason,omitempty"`
	CancelledBy     string  `json:"cancelled_by,omitempty"`
	CancelledAt     string  `json:"cancelled_at,omitempty"`
	ConfirmedAt     string  `json:"confirmed_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

func toAppointmentResponse(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		AppointmentID:   a.ID,
		RequesterID:     a.RequesterID,
		ProviderID:      a.ProviderID,
		StartAt:         formatTime(a.StartAt),
		EndAt:           formatTime(a.EndAt()),
		DurationMinutes: int(a.Duration / time.Minute),
		Status:          string(a.Status),
		Channel:         string(a.Channel),
		MeetingRef:      a.MeetingRef,
		Notes:           a.Notes,
		CancelReason:    a.CancelReason,
		CancelledBy:     a.CancelledBy,
		CancelledAt:     formatOptional(a.CancelledAt),
		ConfirmedAt:     formatOptional(a.ConfirmedAt),
		CreatedAt:       formatTime(a.CreatedAt),
	}
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type slotsResponse struct {
	ProviderID string     `json:"provider_id"`
	Slots      []slotItem `json:"slots"`
}

type conflictResponse struct {
	Free          bool   `json:"free"`
	Reason        string `json:"reason,omitempty"`
	AppointmentID string `json:"appointment_id,omitempty"`
	BreakID       string `json:"break_id,omitempty"`
}

type resolveRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type resolveResponse struct {
	StartAt string `json:"start_at"`
}

// Create books an appointment for the caller. The start is either an
// RFC3339 start_at or a date phrase plus a time phrase.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	requester, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req createAppointmentRequest
	if !decode(w, r, &req) {
		return
	}
	if req.DurationMinutes < 0 {
		http.Error(w, "duration_minutes must not be negative", http.StatusBadRequest)
		return
	}

	br := model.BookingRequest{
		RequesterID: requester,
		ProviderID:  strings.TrimSpace(req.ProviderID),
		DatePhrase:  strings.TrimSpace(req.Date),
		TimePhrase:  strings.TrimSpace(req.Time),
		Duration:    time.Duration(req.DurationMinutes) * time.Minute,
		Channel:     model.Channel(req.Channel),
		Notes:       strings.TrimSpace(req.Notes),
	}
	if s := strings.TrimSpace(req.StartAt); s != "" {
		start, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, "invalid start_at", http.StatusBadRequest)
			return
		}
		br.StartAt = start
	}

	appt, err := h.svc.Book(r.Context(), br)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	q := storage.AppointmentQuery{
		ProviderID:  query(r, "provider_id"),
		RequesterID: query(r, "requester_id"),
	}
	if raw := query(r, "limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		q.Limit = n
	}

	list, err := h.svc.List(r.Context(), actor, q)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]appointmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id := query(r, "id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}
	appt, err := h.svc.Get(r.Context(), actor, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, lifecycle.ActionConfirm)
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, lifecycle.ActionCancel)
}

func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, lifecycle.ActionComplete)
}

func (h *AppointmentHandler) NoShow(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, lifecycle.ActionNoShow)
}

func (h *AppointmentHandler) act(w http.ResponseWriter, r *http.Request, action lifecycle.Action) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req appointmentActionRequest
	if !decode(w, r, &req) {
		return
	}
	id := strings.TrimSpace(req.AppointmentID)
	if id == "" {
		http.Error(w, "missing appointment_id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var (
		appt model.Appointment
		err  error
	)
	switch action {
	case lifecycle.ActionConfirm:
		appt, err = h.svc.Confirm(ctx, actor, id)
	case lifecycle.ActionCancel:
		appt, err = h.svc.Cancel(ctx, actor, id, strings.TrimSpace(req.Reason))
	case lifecycle.ActionComplete:
		appt, err = h.svc.Complete(ctx, lifecycle.User(actor), id)
	case lifecycle.ActionNoShow:
		appt, err = h.svc.NoShow(ctx, lifecycle.User(actor), id)
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

// Slots lists free slots for provider_id over the dates from..to (YYYY-MM-DD).
func (h *AppointmentHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	providerID := query(r, "provider_id")
	if providerID == "" {
		http.Error(w, "missing provider_id", http.StatusBadRequest)
		return
	}
	loc := h.svc.Location()
	from, err := parseDate(query(r, "from"), loc)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	to := from
	if raw := query(r, "to"); raw != "" {
		if to, err = parseDate(raw, loc); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}
	length, err := minutesParam(query(r, "duration_minutes"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	slots, err := h.svc.ListAvailableSlots(r.Context(), providerID, from, to, length)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp := slotsResponse{ProviderID: providerID, Slots: make([]slotItem, 0, len(slots))}
	for _, s := range slots {
		resp.Slots = append(resp.Slots, slotItem{StartTime: formatTime(s.Start), EndTime: formatTime(s.End)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AppointmentHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	start, err := time.Parse(time.RFC3339, query(r, "start"))
	if err != nil {
		http.Error(w, "invalid start", http.StatusBadRequest)
		return
	}
	duration, err := minutesParam(query(r, "duration_minutes"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.svc.CheckConflict(r.Context(), query(r, "provider_id"), start, duration)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp := conflictResponse{Free: res.Free, Reason: string(res.Reason)}
	if res.Appointment != nil {
		resp.AppointmentID = res.Appointment.ID
	}
	if res.Break != nil {
		resp.BreakID = res.Break.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AppointmentHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	var req resolveRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.Time) == "" {
		writeError(w, h.logger, apperr.Validation("date and time are required"))
		return
	}
	at, err := h.svc.Resolve(req.Date, req.Time)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{StartAt: formatTime(at)})
}
