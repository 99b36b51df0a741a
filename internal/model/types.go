package model

// Auth statuses reported in AuthStory.AuthStatus.
const (
	AuthStatusPending = "PENDING"
	AuthStatusSuccess = "SUCCESS"
	AuthStatusFailed  = "FAILED"
)

// Response is the single output unit written for every non-blank input line.
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *string    `json:"error,omitempty"`
	AuthStory *AuthStory `json:"auth_story,omitempty"`
}

// AuthStory describes one authentication attempt: its inputs, outcome and the
// balance observed with the resulting session.
type AuthStory struct {
	RunID         string  `json:"run_id"`
	SignerAddress string  `json:"signer_address"`
	FunderAddress *string `json:"funder_address"`
	SignatureType string  `json:"signature_type"`
	AuthStatus    string  `json:"auth_status"`
	BalanceUSDC   *string `json:"balance_usdc"`
	ErrorDetails  *string `json:"error_details,omitempty"`
}

func Success(data any) Response {
	return Response{Success: true, Data: data}
}

func Failure(message string) Response {
	return Response{Success: false, Error: &message}
}

// FromAuthStory reports success only when the story ended in SUCCESS; any
// other status becomes the error message.
func FromAuthStory(story AuthStory, data any) Response {
	resp := Response{
		Success:   story.AuthStatus == AuthStatusSuccess,
		Data:      data,
		AuthStory: &story,
	}
	if !resp.Success {
		status := story.AuthStatus
		resp.Error = &status
	}
	return resp
}

// ProbeResult is one entry of the probe's per-mode trail.
type ProbeResult struct {
	SignatureType string `json:"signature_type"`
	Success       bool   `json:"success"`
	Balance       string `json:"balance,omitempty"`
	Error         string `json:"error,omitempty"`
}

// WorkingConfig names the signature mode and funder that authenticated.
type WorkingConfig struct {
	SignatureType string  `json:"signature_type"`
	FunderAddress *string `json:"funder_address"`
}

// JournalEntry is one recorded order or cancel request.
type JournalEntry struct {
	RecordID        string `json:"record_id"`
	RunID           string `json:"run_id"`
	Command         string `json:"command"`
	Status          string `json:"status"`
	TokenID         string `json:"token_id,omitempty"`
	Side            string `json:"side,omitempty"`
	OrderType       string `json:"order_type,omitempty"`
	Amount          string `json:"amount,omitempty"`
	Price           string `json:"price,omitempty"`
	SignatureType   string `json:"signature_type"`
	ExchangeOrderID string `json:"exchange_order_id,omitempty"`
	Error           string `json:"error,omitempty"`
	CreatedAt       string `json:"created_at"`
}

const (
	JournalStatusSubmitted = "submitted"
	JournalStatusFailed    = "failed"
	JournalStatusCancelled = "cancelled"
)
