package custody

import "fmt"

// ErrorResponse represents a custody API error response
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Error implements the error interface
func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("custody API error [%d]: %s (code: %s)", e.StatusCode, e.Message, e.Code)
}

// IsInsufficientBalance reports a balance shortfall
func (e *ErrorResponse) IsInsufficientBalance() bool {
	return e.Code == "INSUFFICIENT_BALANCE"
}

// IsInsufficientAllowance reports an allowance shortfall
func (e *ErrorResponse) IsInsufficientAllowance() bool {
	return e.Code == "INSUFFICIENT_ALLOWANCE"
}

// IsUnauthorized returns true if the error is a 401 unauthorized error
func (e *ErrorResponse) IsUnauthorized() bool {
	return e.StatusCode == 401
}
