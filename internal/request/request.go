package request

// SchedulerRequest represents the JSON body for scheduler control.
type SchedulerRequest struct {
	// Action controls the scheduler. Allowed values:
	// - "start": start processing batches
	// - "stop":  stop processing batches
	Action string `json:"action"`
}

// CallStatusRequest represents the JSON body for an admin call status
// update.
type CallStatusRequest struct {
	// Status must be one of IN_PROGRESS, PROCESSED, COMPLETED, PROBLEM.
	Status string `json:"status"`
}

// OrderStatusRequest represents the JSON body for an admin order status
// update.
type OrderStatusRequest struct {
	Status string `json:"status"`
	// Notes optionally replaces the stored note text.
	Notes string `json:"notes,omitempty"`
}
