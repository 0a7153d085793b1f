package response

import (
	"time"

	"github.com/voicedesk/callflow/internal/domain/call"
	"github.com/voicedesk/callflow/internal/domain/conversation"
	"github.com/voicedesk/callflow/internal/domain/order"
	"github.com/voicedesk/callflow/internal/domain/recording"
	"github.com/voicedesk/callflow/internal/service"
)

type WelcomePayload struct {
	Message string `json:"message"`
}

type HealthPayload struct {
	Status string `json:"status"`
}

type WelcomeResponse struct {
	Success   bool           `json:"success"`
	Data      WelcomePayload `json:"data"`
	Timestamp string         `json:"timestamp"`
}

type HealthResponse struct {
	Success   bool          `json:"success"`
	Data      HealthPayload `json:"data"`
	Timestamp string        `json:"timestamp"`
}

type SchedulerControlPayload struct {
	Message string `json:"message"`
}

type SchedulerControlResponse struct {
	Success   bool                    `json:"success"`
	Data      SchedulerControlPayload `json:"data"`
	Timestamp string                  `json:"timestamp"`
}

// CallDTO is the public-facing representation of a call used in API
// responses. It decouples the wire format from the domain entity and plays
// nicely with Swagger.
type CallDTO struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"externalId"`
	CallerNumber string    `json:"callerNumber"`
	Language     string    `json:"language"`
	Status       string    `json:"status"`
	CurrentStep  string    `json:"currentStep"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type ConversationDTO struct {
	Step           string    `json:"step"`
	RawInput       string    `json:"rawInput,omitempty"`
	SystemResponse string    `json:"systemResponse,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

type OrderDTO struct {
	ID                   string     `json:"id"`
	CallID               string     `json:"callId"`
	OrderNumber          string     `json:"orderNumber"`
	Status               string     `json:"status"`
	Notes                string     `json:"notes,omitempty"`
	PromisedDeliveryDate *time.Time `json:"promisedDeliveryDate,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

type RecordingDTO struct {
	RecordingSID     string    `json:"recordingSid"`
	URL              string    `json:"url,omitempty"`
	DurationSeconds  int       `json:"durationSeconds,omitempty"`
	TranscriptText   string    `json:"transcriptText,omitempty"`
	TranscriptStatus string    `json:"transcriptStatus"`
	Notified         bool      `json:"notified"`
	CreatedAt        time.Time `json:"createdAt"`
}

type CallResponse struct {
	Success   bool    `json:"success"`
	Data      CallDTO `json:"data"`
	Timestamp string  `json:"timestamp"`
}

type OrderResponse struct {
	Success   bool     `json:"success"`
	Data      OrderDTO `json:"data"`
	Timestamp string   `json:"timestamp"`
}

type CallsPayload struct {
	Items []CallDTO `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

type CallsResponse struct {
	Success   bool         `json:"success"`
	Data      CallsPayload `json:"data"`
	Timestamp string       `json:"timestamp"`
}

type CallDetailPayload struct {
	Call          CallDTO           `json:"call"`
	Conversations []ConversationDTO `json:"conversations"`
	Orders        []OrderDTO        `json:"orders"`
	Recordings    []RecordingDTO    `json:"recordings"`
}

type CallDetailResponse struct {
	Success   bool              `json:"success"`
	Data      CallDetailPayload `json:"data"`
	Timestamp string            `json:"timestamp"`
}

type OrdersPayload struct {
	Items []OrderDTO `json:"items"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

type OrdersResponse struct {
	Success   bool          `json:"success"`
	Data      OrdersPayload `json:"data"`
	Timestamp string        `json:"timestamp"`
}

type StatsPayload struct {
	TotalCalls int64            `json:"totalCalls"`
	ByStatus   map[string]int64 `json:"byStatus"`
}

type StatsResponse struct {
	Success   bool         `json:"success"`
	Data      StatsPayload `json:"data"`
	Timestamp string       `json:"timestamp"`
}

// FromDomainCall converts a domain call into its DTO.
func FromDomainCall(c *call.Call) CallDTO {
	return CallDTO{
		ID:           c.ID.String(),
		ExternalID:   c.ExternalID,
		CallerNumber: c.CallerNumber,
		Language:     string(c.Language),
		Status:       string(c.Status),
		CurrentStep:  string(c.CurrentStep),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// FromDomainCalls converts domain calls into DTOs for HTTP responses.
func FromDomainCalls(calls []*call.Call) []CallDTO {
	out := make([]CallDTO, len(calls))
	for i, c := range calls {
		out[i] = FromDomainCall(c)
	}
	return out
}

// FromDomainConversations converts dialogue log entries into DTOs.
func FromDomainConversations(entries []*conversation.Entry) []ConversationDTO {
	out := make([]ConversationDTO, len(entries))
	for i, e := range entries {
		out[i] = ConversationDTO{
			Step:           e.Step,
			RawInput:       e.RawInput,
			SystemResponse: e.SystemResponse,
			Timestamp:      e.Timestamp,
		}
	}
	return out
}

// FromDomainOrder converts a domain order into its DTO.
func FromDomainOrder(o *order.Order) OrderDTO {
	return OrderDTO{
		ID:                   o.ID.String(),
		CallID:               o.CallID.String(),
		OrderNumber:          o.OrderNumber,
		Status:               o.Status,
		Notes:                o.Notes,
		PromisedDeliveryDate: o.PromisedDeliveryDate,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

// FromDomainOrders converts domain orders into DTOs.
func FromDomainOrders(orders []*order.Order) []OrderDTO {
	out := make([]OrderDTO, len(orders))
	for i, o := range orders {
		out[i] = FromDomainOrder(o)
	}
	return out
}

// FromDomainRecordings converts domain recordings into DTOs.
func FromDomainRecordings(recs []*recording.Recording) []RecordingDTO {
	out := make([]RecordingDTO, len(recs))
	for i, r := range recs {
		out[i] = RecordingDTO{
			RecordingSID:     r.RecordingSID,
			URL:              r.URL,
			DurationSeconds:  r.DurationSeconds,
			TranscriptText:   r.TranscriptText,
			TranscriptStatus: string(r.TranscriptStatus),
			Notified:         r.Notified,
			CreatedAt:        r.CreatedAt,
		}
	}
	return out
}

// FromCallDetail converts the admin call detail into its payload.
func FromCallDetail(d *service.CallDetail) CallDetailPayload {
	return CallDetailPayload{
		Call:          FromDomainCall(d.Call),
		Conversations: FromDomainConversations(d.Conversations),
		Orders:        FromDomainOrders(d.Orders),
		Recordings:    FromDomainRecordings(d.Recordings),
	}
}

// FromStats converts the stats summary into its payload.
func FromStats(s *service.Stats) StatsPayload {
	byStatus := make(map[string]int64, len(s.ByStatus))
	for k, v := range s.ByStatus {
		byStatus[string(k)] = v
	}
	return StatsPayload{TotalCalls: s.TotalCalls, ByStatus: byStatus}
}
