package prompt

type OptimizeRequest struct {
	Provider      string `json:"provider" binding:"required,max=50"`
	Model         string `json:"model" binding:"max=100"`
	Prompt        string `json:"prompt" binding:"required"`
	Requirement   string `json:"requirement"`
	DeepReasoning bool   `json:"deep_reasoning"`
}
