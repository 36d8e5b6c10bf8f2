package types

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

type ExtractRequest struct {
	Message             string         `json:"message"`
	ConversationHistory []ChatMessage  `json:"conversation_history"`
	CurrentParameters   map[string]any `json:"current_parameters"`
}

type ExtractResponse struct {
	Parameters       map[string]any `json:"parameters"`
	FollowUpQuestion string         `json:"follow_up_question"`
	IsComplete       bool           `json:"is_complete"`
}

type AnalyzeRequest struct {
	Parameters          map[string]any `json:"parameters"`
	ConversationHistory []ChatMessage  `json:"conversation_history"`
}

type AnalyzeResponse struct {
	Report     string         `json:"report"`
	Schools    []Row          `json:"schools"`
	Statistics map[string]any `json:"statistics"`
}
