package api

import "net/http"

func Router(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", h.Health)

	mux.HandleFunc("GET /v1/scheduler/status", h.SchedulerStatus)
	mux.HandleFunc("POST /v1/scheduler/start", h.SchedulerStart)
	mux.HandleFunc("POST /v1/scheduler/stop", h.SchedulerStop)

	mux.HandleFunc("GET /v1/webhook", h.VerifyWebhook)
	mux.HandleFunc("POST /v1/webhook", h.ReceiveWebhook)
	mux.HandleFunc("POST /v1/webhook/twilio", h.ReceiveTwilioWebhook)

	mux.HandleFunc("POST /v1/reminders/run", h.RunReminders)
	mux.HandleFunc("GET /v1/deliveries", h.ListDeliveries)

	mux.HandleFunc("GET /v1/settings/reminders", h.GetReminderSettings)
	mux.HandleFunc("PUT /v1/settings/reminders", h.PutReminderSettings)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("rental-messaging"))
	})

	return mux
}
