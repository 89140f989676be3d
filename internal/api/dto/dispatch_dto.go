package dto

// AssignRequest payload. An empty technician id asks the selector to pick
// the best available technician.
type AssignRequest struct {
	TechnicianID *string `json:"technician_id"`
}
