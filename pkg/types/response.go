package types

// SuccessEnvelope is embedded by every success payload so the flag sits next
// to the endpoint-specific fields.
type SuccessEnvelope struct {
	Success bool `json:"success"`
}

// OK returns the envelope for a successful response.
func OK() SuccessEnvelope {
	return SuccessEnvelope{Success: true}
}

// MessageResponse is the common body for mutations that only report a message.
type MessageResponse struct {
	SuccessEnvelope
	Message string `json:"message"`
}

type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}
