package history

type CreateHistoryRequest struct {
	Prompt        string  `json:"prompt" binding:"required"`
	Requirement   string  `json:"requirement"`
	DeepReasoning *string `json:"deep_reasoning"`
	Result        string  `json:"result" binding:"required"`
	Provider      string  `json:"provider" binding:"max=50"`
	Model         string  `json:"model" binding:"max=100"`
}

type ListHistoryQuery struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}
