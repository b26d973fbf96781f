package entities

// ErrorResponse is the JSON error body returned by the HTTP surface
type ErrorResponse struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// PaymentResponse is the JSON body returned for an initiated payment
type PaymentResponse struct {
	Payment *PaymentRequest `json:"payment"`
	Outcome DispatchOutcome `json:"outcome"`
}

// PaymentListResponse is a paginated list of payment requests
type PaymentListResponse struct {
	Payments []*PaymentRequest `json:"payments"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}
