package entity

import "time"

// RecipientRole is what a recipient is expected to do with the envelope
type RecipientRole string

const (
	RecipientRoleSigner    RecipientRole = "SIGNER"
	RecipientRoleApprover  RecipientRole = "APPROVER"
	RecipientRoleViewer    RecipientRole = "VIEWER"
	RecipientRoleAssistant RecipientRole = "ASSISTANT"
	RecipientRoleCC        RecipientRole = "CC"
)

// SigningStatus is the recipient's progress; SIGNED and REJECTED are terminal
type SigningStatus string

const (
	SigningStatusNotSigned SigningStatus = "NOT_SIGNED"
	SigningStatusSigned    SigningStatus = "SIGNED"
	SigningStatusRejected  SigningStatus = "REJECTED"
)

// SendStatus records whether the recipient has been notified
type SendStatus string

const (
	SendStatusNotSent SendStatus = "NOT_SENT"
	SendStatusSent    SendStatus = "SENT"
)

// RecipientAuthOptions overrides the envelope auth defaults for one recipient
type RecipientAuthOptions struct {
	ActionAuth []ActionAuth `json:"action_auth"`
}

// Recipient is a party who must act on an envelope
type Recipient struct {
	ID              int64                `json:"id"`
	EnvelopeID      int64                `json:"envelope_id"`
	Name            string               `json:"name"`
	Email           string               `json:"email"`
	Token           string               `json:"-"`
	Role            RecipientRole        `json:"role"`
	SigningOrder    *int                 `json:"signing_order,omitempty"`
	SigningStatus   SigningStatus        `json:"signing_status"`
	SendStatus      SendStatus           `json:"send_status"`
	AuthOptions     RecipientAuthOptions `json:"auth_options"`
	SignedAt        *time.Time           `json:"signed_at,omitempty"`
	RejectionReason string               `json:"rejection_reason,omitempty"`
}

// IsCC reports whether the recipient only receives a copy
func (r *Recipient) IsCC() bool {
	return r.Role == RecipientRoleCC
}

// IsTerminal reports whether the recipient has already signed or rejected
func (r *Recipient) IsTerminal() bool {
	return r.SigningStatus == SigningStatusSigned || r.SigningStatus == SigningStatusRejected
}

// DisplayName returns the recipient name, falling back to email
func (r *Recipient) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Email
}

// NextSigner replaces the name and email of the next recipient in a sequential flow
type NextSigner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
