package push

import "context"

// PromptProvider delivers the "Are you safe?" prompt to the user's device.
// Prompts carry action identifiers so the client can answer with a single tap
// that routes back to the confirmation endpoint.
type PromptProvider interface {
	SendPrompt(ctx context.Context, request *PromptRequest) (*PromptResponse, error)
}

type PromptRequest struct {
	Token    string            `json:"token"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	CheckID  string            `json:"check_id"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Priority string            `json:"priority,omitempty"`
}

type PromptResponse struct {
	MessageID string `json:"message_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}
