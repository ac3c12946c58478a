package entity

import (
	"encoding/json"
	"time"
)

// AuditLogType identifies the event recorded in an audit log entry
type AuditLogType string

const (
	AuditLogDocumentSent               AuditLogType = "DOCUMENT_SENT"
	AuditLogDocumentFieldInserted      AuditLogType = "DOCUMENT_FIELD_INSERTED"
	AuditLogDocumentRecipientCompleted AuditLogType = "DOCUMENT_RECIPIENT_COMPLETED"
	AuditLogDocumentRecipientRejected  AuditLogType = "DOCUMENT_RECIPIENT_REJECTED"
	AuditLogDocumentCompleted          AuditLogType = "DOCUMENT_COMPLETED"
	AuditLogAccessAuth2FAFailed        AuditLogType = "DOCUMENT_ACCESS_AUTH_2FA_FAILED"
	AuditLogAccessAuth2FAValidated     AuditLogType = "DOCUMENT_ACCESS_AUTH_2FA_VALIDATED"
	AuditLogAccessAuth2FARequested     AuditLogType = "DOCUMENT_ACCESS_AUTH_2FA_REQUESTED"
	AuditLogRecipientUpdated           AuditLogType = "RECIPIENT_UPDATED"
)

// AuditLogEntry is an append-only record of a state-affecting event.
// System-initiated entries leave IPAddress and UserAgent empty.
type AuditLogEntry struct {
	ID         int64           `json:"id"`
	EnvelopeID int64           `json:"envelope_id"`
	Type       AuditLogType    `json:"type"`
	Data       json.RawMessage `json:"data"`
	Name       string          `json:"name,omitempty"`
	Email      string          `json:"email,omitempty"`
	UserID     *int64          `json:"user_id,omitempty"`
	IPAddress  string          `json:"ip_address,omitempty"`
	UserAgent  string          `json:"user_agent,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// FieldInsertedData is the payload of DOCUMENT_FIELD_INSERTED
type FieldInsertedData struct {
	FieldID        int64         `json:"field_id"`
	FieldType      FieldType     `json:"field_type"`
	RecipientID    int64         `json:"recipient_id"`
	RecipientEmail string        `json:"recipient_email"`
	RecipientName  string        `json:"recipient_name"`
	RecipientRole  RecipientRole `json:"recipient_role"`
	Value          string        `json:"value,omitempty"`
}

// RecipientCompletedData is the payload of DOCUMENT_RECIPIENT_COMPLETED.
// ActionAuth is only set for human-initiated completions.
type RecipientCompletedData struct {
	RecipientID    int64         `json:"recipient_id"`
	RecipientEmail string        `json:"recipient_email"`
	RecipientName  string        `json:"recipient_name"`
	RecipientRole  RecipientRole `json:"recipient_role"`
	ActionAuth     []ActionAuth  `json:"action_auth,omitempty"`
}

// RecipientRejectedData is the payload of DOCUMENT_RECIPIENT_REJECTED
type RecipientRejectedData struct {
	RecipientID    int64         `json:"recipient_id"`
	RecipientEmail string        `json:"recipient_email"`
	RecipientName  string        `json:"recipient_name"`
	RecipientRole  RecipientRole `json:"recipient_role"`
	Reason         string        `json:"reason"`
}

// AccessAuthData is the payload of the 2FA audit entries
type AccessAuthData struct {
	RecipientID    int64  `json:"recipient_id"`
	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name"`
}

// DocumentSentData is the payload of DOCUMENT_SENT
type DocumentSentData struct {
	Title        string       `json:"title"`
	SigningOrder SigningOrder `json:"signing_order"`
}

// RecipientUpdatedChange is one changed attribute in RECIPIENT_UPDATED
type RecipientUpdatedChange struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to"`
}

// RecipientUpdatedData is the payload of RECIPIENT_UPDATED
type RecipientUpdatedData struct {
	RecipientID    int64                    `json:"recipient_id"`
	RecipientEmail string                   `json:"recipient_email"`
	RecipientName  string                   `json:"recipient_name"`
	Changes        []RecipientUpdatedChange `json:"changes"`
}
