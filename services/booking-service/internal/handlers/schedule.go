package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/scheduling"
)

type ScheduleHandler struct {
	svc    *scheduling.Service
	loc    *time.Location
	logger *slog.Logger
}

func NewScheduleHandler(svc *scheduling.Service, loc *time.Location, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, loc: loc, logger: logger}
}

type ruleRequest struct {
	ProviderID  string `json:"provider_id"`
	DayOfWeek   int    `json:"day_of_week"`
	Start       string `json:"start"`
	End         string `json:"end"`
	SlotMinutes int    `json:"slot_minutes"`
	GapMinutes  int    `json:"gap_minutes"`
	MaxPerDay   int    `json:"max_per_day"`
}

type ruleResponse struct {
	RuleID      string `json:"rule_id"`
	ProviderID  string `json:"provider_id"`
	DayOfWeek   int    `json:"day_of_week"`
	Start       string `json:"start"`
	End         string `json:"end"`
	SlotMinutes int    `json:"slot_minutes"`
	GapMinutes  int    `json:"gap_minutes"`
	MaxPerDay   int    `json:"max_per_day"`
	UpdatedAt   string `json:"updated_at"`
}

func toRuleResponse(r model.AvailabilityRule) ruleResponse {
	return ruleResponse{
		RuleID:      r.ID,
		ProviderID:  r.ProviderID,
		DayOfWeek:   int(r.DayOfWeek),
		Start:       r.Start.String(),
		End:         r.End.String(),
		SlotMinutes: int(r.SlotDuration / time.Minute),
		GapMinutes:  int(r.Gap / time.Minute),
		MaxPerDay:   r.MaxPerDay,
		UpdatedAt:   formatTime(r.UpdatedAt),
	}
}

type breakRequest struct {
	ProviderID string `json:"provider_id"`
	Date       string `json:"date"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Reason     string `json:"reason"`
	Recurring  bool   `json:"recurring"`
	Pattern    string `json:"pattern"`
}

type breakResponse struct {
	BreakID    string `json:"break_id"`
	ProviderID string `json:"provider_id"`
	Date       string `json:"date"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Reason     string `json:"reason,omitempty"`
	Recurring  bool   `json:"recurring"`
	Pattern    string `json:"pattern,omitempty"`
}

func toBreakResponse(b model.BreakException) breakResponse {
	return breakResponse{
		BreakID:    b.ID,
		ProviderID: b.ProviderID,
		Date:       b.Date.Format(time.DateOnly),
		Start:      b.Start.String(),
		End:        b.End.String(),
		Reason:     b.Reason,
		Recurring:  b.Recurring,
		Pattern:    b.Pattern,
	}
}

func toBreakResponses(list []model.BreakException) []breakResponse {
	out := make([]breakResponse, 0, len(list))
	for _, b := range list {
		out = append(out, toBreakResponse(b))
	}
	return out
}

func parseWeekday(raw string) (time.Weekday, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > 6 {
		return 0, apperr.Validation("day_of_week must be 0 (Sunday) to 6 (Saturday)")
	}
	return time.Weekday(n), nil
}

func parseClock(field, raw string) (model.TimeOfDay, error) {
	t, err := model.ParseTimeOfDay(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperr.Validation("invalid %s %q, want HH:MM", field, raw)
	}
	return t, nil
}

// Rules serves GET (one weekday or all), PUT (upsert) and DELETE.
func (h *ScheduleHandler) Rules(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPut, http.MethodDelete) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.getRules(w, r)
	case http.MethodPut:
		h.putRule(w, r)
	case http.MethodDelete:
		h.deleteRule(w, r)
	}
}

func (h *ScheduleHandler) getRules(w http.ResponseWriter, r *http.Request) {
	providerID := query(r, "provider_id")
	if raw := query(r, "day_of_week"); raw != "" {
		day, err := parseWeekday(raw)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		rule, err := h.svc.GetRule(r.Context(), providerID, day)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toRuleResponse(rule))
		return
	}

	rules, err := h.svc.ListRules(r.Context(), providerID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleResponse(rule))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ScheduleHandler) putRule(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req ruleRequest
	if !decode(w, r, &req) {
		return
	}
	start, err := parseClock("start", req.Start)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	end, err := parseClock("end", req.End)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	rule, err := h.svc.UpsertRule(r.Context(), actor, scheduling.RuleInput{
		ProviderID:   strings.TrimSpace(req.ProviderID),
		DayOfWeek:    time.Weekday(req.DayOfWeek),
		Start:        start,
		End:          end,
		SlotDuration: time.Duration(req.SlotMinutes) * time.Minute,
		Gap:          time.Duration(req.GapMinutes) * time.Minute,
		MaxPerDay:    req.MaxPerDay,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleResponse(rule))
}

func (h *ScheduleHandler) deleteRule(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	day, err := parseWeekday(query(r, "day_of_week"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.svc.DeleteRule(r.Context(), actor, query(r, "provider_id"), day); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScheduleHandler) breakInput(req breakRequest) (scheduling.BreakInput, error) {
	in := scheduling.BreakInput{
		ProviderID: strings.TrimSpace(req.ProviderID),
		Reason:     strings.TrimSpace(req.Reason),
		Recurring:  req.Recurring,
		Pattern:    strings.TrimSpace(req.Pattern),
	}
	var err error
	if in.Date, err = parseDate(strings.TrimSpace(req.Date), h.loc); err != nil {
		return in, err
	}
	if in.Start, err = parseClock("start", req.Start); err != nil {
		return in, err
	}
	if in.End, err = parseClock("end", req.End); err != nil {
		return in, err
	}
	return in, nil
}

// Breaks serves GET (?id or ?provider_id), POST, PUT ?id and DELETE ?id.
func (h *ScheduleHandler) Breaks(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete) {
		return
	}
	ctx := r.Context()

	if r.Method == http.MethodGet {
		if id := query(r, "id"); id != "" {
			b, err := h.svc.GetBreak(ctx, id)
			if err != nil {
				writeError(w, h.logger, err)
				return
			}
			writeJSON(w, http.StatusOK, toBreakResponse(b))
			return
		}
		list, err := h.svc.ListBreaks(ctx, query(r, "provider_id"))
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toBreakResponses(list))
		return
	}

	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if r.Method == http.MethodDelete {
		if err := h.svc.DeleteBreak(ctx, actor, query(r, "id")); err != nil {
			writeError(w, h.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var req breakRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := h.breakInput(req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if r.Method == http.MethodPost {
		b, err := h.svc.CreateBreak(ctx, actor, in)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toBreakResponse(b))
		return
	}
	b, err := h.svc.UpdateBreak(ctx, actor, query(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBreakResponse(b))
}

// BreakConflicts lists breaks intersecting [start, end) on date.
func (h *ScheduleHandler) BreakConflicts(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	date, err := parseDate(query(r, "date"), h.loc)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	start, err := parseClock("start", query(r, "start"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	end, err := parseClock("end", query(r, "end"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	list, err := h.svc.FindConflicting(r.Context(), query(r, "provider_id"), date, start, end)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBreakResponses(list))
}
