package contact

import "strings"

// SubmissionRequest is the JSON body accepted by the mail relay.
// Bounds apply after Normalize has trimmed the values.
type SubmissionRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=50,singleline"`
	Company string `json:"company" validate:"max=100,singleline"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Message string `json:"message" validate:"required,min=10,max=1000"`
}

// Normalize trims every field and lower-cases the email address
func (r *SubmissionRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Company = strings.TrimSpace(r.Company)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Message = strings.TrimSpace(r.Message)
}

// Plain-text bodies returned by the relay endpoint
const (
	Confirmation   = "Message sent"
	DeliveryFailed = "Failed to send message"
)
