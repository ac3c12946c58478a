package entity

// RequestMetadata describes the inbound request that triggered an operation
type RequestMetadata struct {
	RequestID string `json:"request_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	UserID    *int64 `json:"user_id,omitempty"`
}

// SecondFactorCredentials are supplied by a recipient when their action requires 2FA
type SecondFactorCredentials struct {
	Token string `json:"token"`
}

// CompleteRecipientRequest is the body of a signing completion call
type CompleteRecipientRequest struct {
	EnvelopeID int64                    `json:"envelope_id"`
	Auth       *SecondFactorCredentials `json:"auth,omitempty"`
	NextSigner *NextSigner              `json:"next_signer,omitempty"`
}

// RejectRecipientRequest is the body of a rejection call
type RejectRecipientRequest struct {
	Reason string `json:"reason"`
}

// CompletionResult summarises what a completion changed
type CompletionResult struct {
	Envelope       EnvelopeSnapshot `json:"envelope"`
	NextRecipients []Recipient      `json:"next_recipients"`
	AutoSigned     []int64          `json:"auto_signed_recipient_ids"`
	SealRequested  bool             `json:"seal_requested"`
}

// SendResult summarises what a send changed
type SendResult struct {
	Envelope      EnvelopeSnapshot `json:"envelope"`
	Notified      []Recipient      `json:"notified"`
	SealRequested bool             `json:"seal_requested"`
}
