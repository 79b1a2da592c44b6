package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

// ClientConfigResponse tells polling clients how to behave.
type ClientConfigResponse struct {
	PollIntervalSeconds int      `json:"poll_interval_seconds"`
	MessagePageLimit    int      `json:"message_page_limit"`
	SupportedCurrencies []string `json:"supported_currencies"`
	DisputeReasons      []string `json:"dispute_reasons"`
}
