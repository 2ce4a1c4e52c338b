package jobs

// WelcomeEmailPayload is ID-based plus the address, so the worker needs no
// store access to send it.
type WelcomeEmailPayload struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	RequestID string `json:"requestId,omitempty"`
}
