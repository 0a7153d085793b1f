package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/voicedesk/callflow/internal/domain/call"
	"github.com/voicedesk/callflow/internal/domain/order"
	"github.com/voicedesk/callflow/internal/request"
	"github.com/voicedesk/callflow/internal/response"
	"github.com/voicedesk/callflow/internal/scheduler"
	"github.com/voicedesk/callflow/internal/service"
)

// AdminHandler wires the operator-facing JSON endpoints to the admin
// service and the background scheduler.
type AdminHandler struct {
	adminSvc service.AdminService
	schSvc   scheduler.SchedulerService
}

// NewAdminHandler constructs a new AdminHandler with its dependencies.
func NewAdminHandler(adminSvc service.AdminService, schSvc scheduler.SchedulerService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc, schSvc: schSvc}
}

// parsePage reads page/limit query params with the usual bounds.
func parsePage(r *http.Request) (page, limit int) {
	page = 1
	limit = 20

	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	return page, limit
}

// ListCalls godoc
// @Summary     List calls
// @Description Returns a paginated list of calls, optionally filtered by status, language or caller number.
// @Tags        calls
// @Produce     json
// @Param       status   query string false "Call status filter"
// @Param       language query string false "Language filter (de|en)"
// @Param       phone    query string false "Caller number substring filter"
// @Param       page     query int    false "Page number"         default(1)
// @Param       limit    query int    false "Page size (max 100)" default(20)
// @Success     200 {object} response.CallsResponse
// @Failure     500 {object} map[string]string
// @Router      /calls [get]
func (h *AdminHandler) ListCalls(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePage(r)
	f := call.ListFilter{
		Status:   call.Status(r.URL.Query().Get("status")),
		Language: call.Language(r.URL.Query().Get("language")),
		Phone:    r.URL.Query().Get("phone"),
	}

	items, total, err := h.adminSvc.ListCalls(r.Context(), f, page, limit)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := response.CallsPayload{
		Items: response.FromDomainCalls(items),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	response.RespondJSON(w, http.StatusOK, payload)
}

// GetCall godoc
// @Summary     Call detail
// @Description Returns one call with its dialogue log, orders and recordings.
// @Tags        calls
// @Produce     json
// @Param       id path string true "Call id (UUID)"
// @Success     200 {object} response.CallDetailResponse
// @Failure     400 {object} map[string]string
// @Failure     404 {object} map[string]string
// @Router      /calls/{id} [get]
func (h *AdminHandler) GetCall(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid call id")
		return
	}

	detail, err := h.adminSvc.GetCall(r.Context(), id)
	if errors.Is(err, call.ErrCallNotFound) {
		response.RespondError(w, http.StatusNotFound, "call not found")
		return
	}
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, response.FromCallDetail(detail))
}

// UpdateCallStatus godoc
// @Summary     Update call status
// @Description Sets the status of a call (manual operator reclassification).
// @Tags        calls
// @Accept      json
// @Produce     json
// @Param       id      path string                    true "Call id (UUID)"
// @Param       request body request.CallStatusRequest true "New status"
// @Success     200 {object} response.CallResponse
// @Failure     400 {object} map[string]string
// @Failure     404 {object} map[string]string
// @Router      /calls/{id}/status [put]
func (h *AdminHandler) UpdateCallStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid call id")
		return
	}

	var req request.CallStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := h.adminSvc.UpdateCallStatus(r.Context(), id, call.Status(req.Status))
	switch {
	case errors.Is(err, service.ErrInvalidStatus):
		response.RespondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, call.ErrCallNotFound):
		response.RespondError(w, http.StatusNotFound, "call not found")
		return
	case err != nil:
		response.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, response.FromDomainCall(c))
}

// ListOrders godoc
// @Summary     List orders
// @Description Returns a paginated list of orders checked during calls.
// @Tags        orders
// @Produce     json
// @Param       status query string false "Order status filter"
// @Param       number query string false "Order number filter"
// @Param       phone  query string false "Caller number substring filter"
// @Param       page   query int    false "Page number"         default(1)
// @Param       limit  query int    false "Page size (max 100)" default(20)
// @Success     200 {object} response.OrdersResponse
// @Failure     500 {object} map[string]string
// @Router      /orders [get]
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePage(r)
	f := order.ListFilter{
		Status:      r.URL.Query().Get("status"),
		OrderNumber: r.URL.Query().Get("number"),
		Phone:       r.URL.Query().Get("phone"),
	}

	items, total, err := h.adminSvc.ListOrders(r.Context(), f, page, limit)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := response.OrdersPayload{
		Items: response.FromDomainOrders(items),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	response.RespondJSON(w, http.StatusOK, payload)
}

// UpdateOrderStatus godoc
// @Summary     Update order status
// @Description Sets the status (and optionally the notes) of an order row.
// @Tags        orders
// @Accept      json
// @Produce     json
// @Param       id      path string                     true "Order id (UUID)"
// @Param       request body request.OrderStatusRequest true "New status"
// @Success     200 {object} response.OrderResponse
// @Failure     400 {object} map[string]string
// @Failure     404 {object} map[string]string
// @Router      /orders/{id}/status [put]
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req request.OrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	o, err := h.adminSvc.UpdateOrderStatus(r.Context(), id, req.Status, req.Notes)
	switch {
	case errors.Is(err, service.ErrInvalidStatus):
		response.RespondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, order.ErrOrderNotFound):
		response.RespondError(w, http.StatusNotFound, "order not found")
		return
	case err != nil:
		response.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, response.FromDomainOrder(o))
}

// GetStats godoc
// @Summary     Call statistics
// @Description Returns call counts per status.
// @Tags        stats
// @Produce     json
// @Success     200 {object} response.StatsResponse
// @Failure     500 {object} map[string]string
// @Router      /stats [get]
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminSvc.GetStats(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, response.FromStats(stats))
}

// StartStopScheduler godoc
// @Summary     Control scheduler
// @Description Starts or stops the background notification scheduler.
// @Tags        scheduler
// @Accept      json
// @Produce     json
// @Param       request body request.SchedulerRequest true "Scheduler action (start|stop)"
// @Success     200 {object} response.SchedulerControlResponse
// @Failure     400 {object} map[string]string
// @Router      /scheduler [post]
func (h *AdminHandler) StartStopScheduler(w http.ResponseWriter, r *http.Request) {
	var req request.SchedulerRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch req.Action {
	case "start":
		if err := h.schSvc.Start(); err != nil {
			response.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		response.RespondJSON(w, http.StatusOK, response.SchedulerControlPayload{Message: "scheduler started"})

	case "stop":
		if err := h.schSvc.Stop(); err != nil {
			response.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		response.RespondJSON(w, http.StatusOK, response.SchedulerControlPayload{Message: "scheduler stopped"})

	default:
		response.RespondError(w, http.StatusBadRequest, "action must be 'start' or 'stop'")
	}
}
