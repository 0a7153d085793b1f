package routes

import (
	"net/http"

	swaggerHandler "github.com/swaggo/http-swagger"

	_ "github.com/voicedesk/callflow/internal/docs" // swagger docs
	"github.com/voicedesk/callflow/internal/response"
	"github.com/voicedesk/callflow/internal/service"
)

type AppDeps struct {
	Home    HomeHandler
	Webhook WebhookHandler
	Admin   AdminHandler
}

type HomeHandler interface {
	Index(w http.ResponseWriter, r *http.Request)
	Health(w http.ResponseWriter, r *http.Request)
}

type WebhookHandler interface {
	Voice(w http.ResponseWriter, r *http.Request)
	Consent(w http.ResponseWriter, r *http.Request)
	Availability(w http.ResponseWriter, r *http.Request)
	Order(w http.ResponseWriter, r *http.Request)
	OrderConfirm(w http.ResponseWriter, r *http.Request)
	VoiceMessage(w http.ResponseWriter, r *http.Request)
	Recorded(w http.ResponseWriter, r *http.Request)
	RecordingStatus(w http.ResponseWriter, r *http.Request)
	Transcription(w http.ResponseWriter, r *http.Request)
}

type AdminHandler interface {
	ListCalls(w http.ResponseWriter, r *http.Request)
	GetCall(w http.ResponseWriter, r *http.Request)
	UpdateCallStatus(w http.ResponseWriter, r *http.Request)
	ListOrders(w http.ResponseWriter, r *http.Request)
	UpdateOrderStatus(w http.ResponseWriter, r *http.Request)
	GetStats(w http.ResponseWriter, r *http.Request)
	StartStopScheduler(w http.ResponseWriter, r *http.Request)
}

func Register(mux *http.ServeMux, d AppDeps) {
	mux.HandleFunc("GET /{$}", d.Home.Index)
	mux.HandleFunc("GET /health", d.Home.Health)

	// Telephony provider webhooks.
	mux.HandleFunc("POST "+service.PathVoice, d.Webhook.Voice)
	mux.HandleFunc("POST "+service.PathConsent, d.Webhook.Consent)
	mux.HandleFunc("POST "+service.PathAvailability, d.Webhook.Availability)
	mux.HandleFunc("POST "+service.PathOrder, d.Webhook.Order)
	mux.HandleFunc("POST "+service.PathOrderConfirm, d.Webhook.OrderConfirm)
	mux.HandleFunc("POST "+service.PathVoiceMessage, d.Webhook.VoiceMessage)
	mux.HandleFunc("POST "+service.PathRecorded, d.Webhook.Recorded)
	mux.HandleFunc("POST "+service.PathRecordingStatus, d.Webhook.RecordingStatus)
	mux.HandleFunc("POST "+service.PathTranscription, d.Webhook.Transcription)

	// Operator endpoints.
	mux.HandleFunc("GET /calls", d.Admin.ListCalls)
	mux.HandleFunc("GET /calls/{id}", d.Admin.GetCall)
	mux.HandleFunc("PUT /calls/{id}/status", d.Admin.UpdateCallStatus)
	mux.HandleFunc("GET /orders", d.Admin.ListOrders)
	mux.HandleFunc("PUT /orders/{id}/status", d.Admin.UpdateOrderStatus)
	mux.HandleFunc("GET /stats", d.Admin.GetStats)
	mux.HandleFunc("POST /scheduler", d.Admin.StartStopScheduler)

	//Swagger
	mux.HandleFunc("GET /swagger/", swaggerHandler.WrapHandler)

	// Fallback handler for undefined routes (404)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.RespondError(w, http.StatusNotFound, "route not found")
	}))
}
