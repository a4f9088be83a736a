// Package dto defines the JSON bodies of the urlguard API.
package dto

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Pagination carries the opaque cursor of the next scan page.
type Pagination struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}
