/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  Defines the JSON structures the dashboard UI consumes. Records, stats and
  filter options are served in the shape of the compliance package types
  (their JSON tags already match the UI); the types here cover the
  responses that only exist at the HTTP layer.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Wrappers

SEE ALSO:
  - handlers.go: Uses these types
  - compliance/types.go: Record, Stats, FilterOptions
*/
package api

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SchemeTypeDTO describes one of the fixed scheme types.
type SchemeTypeDTO struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status string `json:"status"`
}
