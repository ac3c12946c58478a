package entity

import "time"

// Job names understood by the background worker
const (
	JobSendRecipientSignedEmail  = "send.recipient.signed.email"
	JobSendSigningRequestedEmail = "send.signing.requested.email"
	JobSendSigningRejectedEmails = "send.signing.rejected.emails"
	JobSendSecondFactorCodeEmail = "send.2fa.code.email"
	JobSealDocument              = "internal.seal-document"
)

// Job is one queued unit of background work
type Job struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Payload    interface{} `json:"payload"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
}

// RecipientJobPayload targets one recipient of an envelope
type RecipientJobPayload struct {
	EnvelopeID  int64 `json:"envelope_id"`
	RecipientID int64 `json:"recipient_id"`
}

// SealDocumentPayload asks the worker to finalise the envelope PDF
type SealDocumentPayload struct {
	EnvelopeID  int64 `json:"envelope_id"`
	SendEmail   bool  `json:"send_email"`
	IsResealing bool  `json:"is_resealing"`
}

// SecondFactorCodePayload delivers a one-time code to a recipient
type SecondFactorCodePayload struct {
	EnvelopeID  int64  `json:"envelope_id"`
	RecipientID int64  `json:"recipient_id"`
	Email       string `json:"email"`
	Code        string `json:"code"`
}
