package events

const (
	LLMRequestEventName  = "llm-request"
	LLMResponseEventName = "llm-response"
	LLMErrorEventName    = "llm-error"
)
