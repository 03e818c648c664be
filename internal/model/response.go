package model

type AuthResponse struct {
	Message string        `json:"message"`
	Token   string        `json:"token"`
	User    PublicAccount `json:"user"`
}

type AccountResponse struct {
	Message string        `json:"message"`
	User    PublicAccount `json:"user"`
}

type HealthResponse struct {
	Message   string `json:"message"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
