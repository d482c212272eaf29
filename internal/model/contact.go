package model

// Contact is a message left through the contact form.  Every field is
// optional and stored as sent.
type Contact struct {
	ID          uint64  `json:"id"`
	Name        *string `json:"name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Issue       *string `json:"issue,omitempty"`
	Description *string `json:"description,omitempty"`
}
