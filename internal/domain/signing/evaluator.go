// Package signing holds the pure rules of the document-completion state machine:
// which fields block a recipient, and which recipient may act next.
package signing

import "signflow/internal/domain/entity"

// IsRequiredField reports whether a field must be filled before its recipient can complete.
// Signature, initials, name, email and date fields are always required; the remaining
// types are required only when flagged. Fields of CC recipients never block.
func IsRequiredField(field entity.Field) bool {
	if field.RecipientRole == entity.RecipientRoleCC {
		return false
	}

	switch field.Type {
	case entity.FieldTypeSignature,
		entity.FieldTypeFreeSignature,
		entity.FieldTypeInitials,
		entity.FieldTypeName,
		entity.FieldTypeEmail,
		entity.FieldTypeDate:
		return true
	default:
		return field.Meta.Required
	}
}

// HasUnsignedRequiredField reports whether any required field in fields is not yet inserted
func HasUnsignedRequiredField(fields []entity.Field) bool {
	for _, field := range fields {
		if IsRequiredField(field) && !field.Inserted {
			return true
		}
	}
	return false
}

// FieldsExcludingAutoSign drops auto-sign fields, for the "everyone but auto-sign is done" check
func FieldsExcludingAutoSign(fields []entity.Field) []entity.Field {
	result := make([]entity.Field, 0, len(fields))
	for _, field := range fields {
		if !field.AutoSign {
			result = append(result, field)
		}
	}
	return result
}
