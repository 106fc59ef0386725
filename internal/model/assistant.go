package model

// ProviderID names an AI provider known to the backend.
type ProviderID string

const (
	ProviderOpenAI   ProviderID = "openai"
	ProviderDeepSeek ProviderID = "deepseek"
	ProviderQwen     ProviderID = "qwen"
	ProviderCustom   ProviderID = "custom"
)

// AISettings is persisted as a flat JSON object under SettingsKey.
type AISettings struct {
	ProviderID ProviderID `json:"providerId"`
	BaseURL    string     `json:"baseUrl"`
	Model      string     `json:"model"`
	APIKey     string     `json:"apiKey"`
	MaxRows    int        `json:"maxRows"`
}

// DefaultAISettings returns the settings used when nothing is stored.
func DefaultAISettings() AISettings {
	return AISettings{
		ProviderID: ProviderDeepSeek,
		Model:      "deepseek-chat",
		MaxRows:    200,
	}
}

// ChatRole is the author of a chat message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry of the assistant transcript.
type ChatMessage struct {
	ID       string   `json:"id"`
	Role     ChatRole `json:"role"`
	Content  string   `json:"content"`
	SQL      string   `json:"sql,omitempty"`
	RowCount *int     `json:"rowCount,omitempty"`
}

// ChatTurn is a history entry sent with a chat request.
type ChatTurn struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// ChatRequest is the body of POST /ai/chat.
type ChatRequest struct {
	ProviderID ProviderID `json:"providerId"`
	BaseURL    string     `json:"baseUrl,omitempty"`
	Model      string     `json:"model"`
	APIKey     string     `json:"apiKey"`
	Message    string     `json:"message"`
	History    []ChatTurn `json:"history,omitempty"`
	MaxRows    int        `json:"maxRows,omitempty"`
}

// ChatResponse is the body returned by POST /ai/chat.
type ChatResponse struct {
	Reply    string `json:"reply"`
	SQL      string `json:"sql,omitempty"`
	RowCount *int   `json:"rowCount,omitempty"`
}
