package domain

import "time"

// ClientProfile holds the customer master data used to personalize scoring
// prompts and to address outbound email.
type ClientProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Plan      string    `json:"plan,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
