package entity

import "time"

// FieldType is the kind of input placed on the document
type FieldType string

const (
	FieldTypeSignature     FieldType = "SIGNATURE"
	FieldTypeFreeSignature FieldType = "FREE_SIGNATURE"
	FieldTypeInitials      FieldType = "INITIALS"
	FieldTypeName          FieldType = "NAME"
	FieldTypeEmail         FieldType = "EMAIL"
	FieldTypeDate          FieldType = "DATE"
	FieldTypeText          FieldType = "TEXT"
	FieldTypeNumber        FieldType = "NUMBER"
	FieldTypeRadio         FieldType = "RADIO"
	FieldTypeCheckbox      FieldType = "CHECKBOX"
	FieldTypeDropdown      FieldType = "DROPDOWN"
)

// IsSignatureType reports whether filling the field produces a Signature record
func (t FieldType) IsSignatureType() bool {
	return t == FieldTypeSignature || t == FieldTypeFreeSignature
}

// IsValid reports whether t is a known field type
func (t FieldType) IsValid() bool {
	switch t {
	case FieldTypeSignature, FieldTypeFreeSignature, FieldTypeInitials, FieldTypeName,
		FieldTypeEmail, FieldTypeDate, FieldTypeText, FieldTypeNumber, FieldTypeRadio,
		FieldTypeCheckbox, FieldTypeDropdown:
		return true
	}
	return false
}

// FieldMeta carries optional per-field settings
type FieldMeta struct {
	Required bool `json:"required"`
}

// Field is a placeable element bound to one recipient and one page
type Field struct {
	ID          int64     `json:"id"`
	EnvelopeID  int64     `json:"envelope_id"`
	RecipientID int64     `json:"recipient_id"`
	Type        FieldType `json:"type"`
	Page        int       `json:"page"`
	PositionX   float64   `json:"position_x"`
	PositionY   float64   `json:"position_y"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	Inserted    bool      `json:"inserted"`
	AutoSign    bool      `json:"autosign"`
	CustomText  string    `json:"custom_text,omitempty"`
	Meta        FieldMeta `json:"meta"`

	// RecipientRole is populated by the store so required-ness can be derived without a second lookup
	RecipientRole RecipientRole `json:"-"`
}

// Signature is the value recorded when a signature-type field is filled
type Signature struct {
	ID             int64     `json:"id"`
	FieldID        int64     `json:"field_id"`
	RecipientID    int64     `json:"recipient_id"`
	TypedSignature string    `json:"typed_signature"`
	CreatedAt      time.Time `json:"created_at"`
}
