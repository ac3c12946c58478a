package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"signflow/internal/domain/entity"
)

func TestIsRequiredField(t *testing.T) {
	tests := []struct {
		name  string
		field entity.Field
		want  bool
	}{
		{"signature always required", entity.Field{Type: entity.FieldTypeSignature, RecipientRole: entity.RecipientRoleSigner}, true},
		{"free signature always required", entity.Field{Type: entity.FieldTypeFreeSignature}, true},
		{"date always required", entity.Field{Type: entity.FieldTypeDate}, true},
		{"text optional by default", entity.Field{Type: entity.FieldTypeText}, false},
		{"text flagged required", entity.Field{Type: entity.FieldTypeText, Meta: entity.FieldMeta{Required: true}}, true},
		{"checkbox flagged required", entity.Field{Type: entity.FieldTypeCheckbox, Meta: entity.FieldMeta{Required: true}}, true},
		{"cc recipient never blocks", entity.Field{Type: entity.FieldTypeSignature, RecipientRole: entity.RecipientRoleCC}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRequiredField(tt.field))
		})
	}
}

func TestHasUnsignedRequiredField(t *testing.T) {
	t.Run("empty set", func(t *testing.T) {
		assert.False(t, HasUnsignedRequiredField(nil))
	})

	t.Run("uninserted signature blocks", func(t *testing.T) {
		fields := []entity.Field{
			{ID: 1, Type: entity.FieldTypeSignature},
			{ID: 2, Type: entity.FieldTypeText, Inserted: true},
		}
		assert.True(t, HasUnsignedRequiredField(fields))
	})

	t.Run("optional uninserted fields do not block", func(t *testing.T) {
		fields := []entity.Field{
			{ID: 1, Type: entity.FieldTypeSignature, Inserted: true},
			{ID: 2, Type: entity.FieldTypeText},
			{ID: 3, Type: entity.FieldTypeDropdown},
		}
		assert.False(t, HasUnsignedRequiredField(fields))
	})

	t.Run("inserted autosign field never blocks", func(t *testing.T) {
		fields := []entity.Field{
			{ID: 1, Type: entity.FieldTypeSignature, AutoSign: true, Inserted: true},
		}
		assert.False(t, HasUnsignedRequiredField(fields))
	})

	t.Run("uninserted autosign field is excluded from the manual check", func(t *testing.T) {
		fields := []entity.Field{
			{ID: 1, Type: entity.FieldTypeSignature, AutoSign: true},
			{ID: 2, Type: entity.FieldTypeName, Inserted: true},
		}
		assert.True(t, HasUnsignedRequiredField(fields))
		assert.False(t, HasUnsignedRequiredField(FieldsExcludingAutoSign(fields)))
	})
}
