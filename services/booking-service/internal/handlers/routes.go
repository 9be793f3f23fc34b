package handlers

import "net/http"

func Register(mux *http.ServeMux, a *AppointmentHandler, s *ScheduleHandler) {
	mux.HandleFunc("/api/v1/slots", a.Slots)
	mux.HandleFunc("/api/v1/appointments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			a.Create(w, r)
			return
		}
		a.List(w, r)
	})
	mux.HandleFunc("/api/v1/appointments/get", a.Get)
	mux.HandleFunc("/api/v1/appointments/confirm", a.Confirm)
	mux.HandleFunc("/api/v1/appointments/cancel", a.Cancel)
	mux.HandleFunc("/api/v1/appointments/complete", a.Complete)
	mux.HandleFunc("/api/v1/appointments/no-show", a.NoShow)
	mux.HandleFunc("/api/v1/conflicts", a.Conflicts)
	mux.HandleFunc("/api/v1/resolve", a.Resolve)

	mux.HandleFunc("/api/v1/rules", s.Rules)
	mux.HandleFunc("/api/v1/breaks", s.Breaks)
	mux.HandleFunc("/api/v1/breaks/conflicts", s.BreakConflicts)
}
