package http

import (
	"encoding/json"

	"github.com/fyrsmithlabs/leavelens/internal/analysis"
	"github.com/fyrsmithlabs/leavelens/internal/leave"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ProcessRequest is the request body for POST /api/process-leave-letter.
type ProcessRequest struct {
	// File is base64 content, optionally a data URL.
	File string `json:"file"`
}

// ProcessResponse is the response body for POST /api/process-leave-letter.
type ProcessResponse struct {
	Success bool         `json:"success"`
	Data    leave.Record `json:"data"`
	RawText string       `json:"raw_text"`
}

// AnalyzeRequest is the request body for POST /api/analyze-leave-letters.
// LeaveLetters stays raw so shape errors can be reported precisely.
type AnalyzeRequest struct {
	LeaveLetters json.RawMessage `json:"leave_letters"`
}

// AnalyzeResponse is the response body for POST /api/analyze-leave-letters.
type AnalyzeResponse struct {
	Success bool `json:"success"`
	*analysis.Report
}

// ErrorResponse is returned for every failed request. Detail is only set
// for server-side failures.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
