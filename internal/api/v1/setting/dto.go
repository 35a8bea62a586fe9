package setting

type SaveAPIKeyRequest struct {
	Provider string `json:"provider" binding:"required,max=50"`
	APIKey   string `json:"api_key" binding:"required"`
	BaseURL  string `json:"base_url" binding:"omitempty,url,max=500"`
	Model    string `json:"model" binding:"max=100"`
}
