package dto

import "time"

type SendChatRequest struct {
	Message     string `json:"message" form:"message" validate:"required"`
	Model       string `json:"model" form:"model" validate:"required"`
	FileContent string `json:"file_content,omitempty" form:"file_content"` // base64
	FileName    string `json:"file_name,omitempty" form:"file_name"`
}

type ChatMessageDTO struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	FileName  string    `json:"file_name,omitempty"`
	IsImage   bool      `json:"is_image_response,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SendChatResponse struct {
	Content    string `json:"content"`
	FileName   string `json:"file_name,omitempty"`
	FileStatus string `json:"file_status,omitempty"`
	IsImage    bool   `json:"is_image_response,omitempty"`
	Cached     bool   `json:"cached,omitempty"`
}

type ChatHistoryResponse struct {
	Messages []ChatMessageDTO `json:"messages"`
}

type NewSessionResponse struct {
	SessionID   string `json:"session_id"`
	AccessToken string `json:"access_token"`
}

type ModelsResponse struct {
	Models []string `json:"models"`
}

// UsageResponse mirrors what the original surface reported: counts plus
// the configured ceilings, with admin/unrestricted tiers shown as
// unlimited.
type UsageResponse struct {
	Tier         string `json:"tier"`
	Unlimited    bool   `json:"unlimited"`
	RequestCount int    `json:"request_count"`
	TokenCount   int    `json:"token_count"`
	RequestLimit int    `json:"request_limit,omitempty"`
	TokenLimit   int    `json:"token_limit,omitempty"`
	LimitReached bool   `json:"limit_reached"`
}

// QuotaExceededData is the data payload for 429 responses.
type QuotaExceededData struct {
	Reason string `json:"reason"` // "requests" | "tokens"
	Used   int    `json:"used"`
	Limit  int    `json:"limit"`
}
