package domain

// RelayRequest is the wire shape a client sends to the relay boundary.
type RelayRequest struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// RelayResponse is the wire shape returned for processed requests,
// successful or not. Response always carries user-presentable text.
type RelayResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

// RelayError is the wire shape for requests the relay refused to
// process (validation failures and unexpected internal errors).
type RelayError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
