package dto

// ─── Response DTOs ───────────────────────────────────────────────────────────

// LoginResponse is returned by POST /token (form-encoded credentials).
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// SystemConfig is returned by GET /api/system/config.
type SystemConfig struct {
	OSType     string `json:"os_type"`
	ServerType string `json:"server_type"` // local | remote
}

// PrintStatus is the JSON answer of print/save endpoints when the server
// printed or stored the document itself instead of returning a PDF.
type PrintStatus struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
	Filename string `json:"filename,omitempty"`
}
