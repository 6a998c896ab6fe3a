package models

type ChatRequest struct {
	UserMessage string `json:"user_message" validate:"required"`
	// Tone is a hint such as "friendly" or "sarcastic". Any value is accepted.
	Tone string `json:"tone" validate:"required"`
}

type BatchChatRequest struct {
	Prompts []ChatRequest `json:"prompts" validate:"required,dive"`
}

type BatchChatResponse struct {
	Responses []string `json:"responses"`
}
