package httpx

import "time"

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
}

type healthResponse struct {
	Status string `json:"status"`
}
