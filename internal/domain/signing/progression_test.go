package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signflow/internal/domain/entity"
)

func order(n int) *int { return &n }

func recipient(id int64, signingOrder *int, status entity.SigningStatus, role entity.RecipientRole) entity.Recipient {
	return entity.Recipient{
		ID:            id,
		SigningOrder:  signingOrder,
		SigningStatus: status,
		SendStatus:    entity.SendStatusNotSent,
		Role:          role,
	}
}

func TestSortBySigningOrder(t *testing.T) {
	recipients := []entity.Recipient{
		recipient(5, nil, entity.SigningStatusNotSigned, entity.RecipientRoleSigner),
		recipient(4, order(2), entity.SigningStatusNotSigned, entity.RecipientRoleSigner),
		recipient(3, order(1), entity.SigningStatusNotSigned, entity.RecipientRoleSigner),
		recipient(2, nil, entity.SigningStatusNotSigned, entity.RecipientRoleSigner),
		recipient(1, order(2), entity.SigningStatusNotSigned, entity.RecipientRoleSigner),
	}

	sorted := SortBySigningOrder(recipients)

	ids := make([]int64, 0, len(sorted))
	for _, r := range sorted {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{3, 1, 4, 2, 5}, ids)
	assert.Equal(t, int64(5), recipients[0].ID, "input must not be reordered")
}

func TestActiveRecipient(t *testing.T) {
	t.Run("lowest order not yet signed", func(t *testing.T) {
		recipients := []entity.Recipient{
			recipient(1, order(1), entity.SigningStatusSigned, entity.RecipientRoleSigner),
			recipient(2, order(3), entity.SigningStatusNotSigned, entity.RecipientRoleSigner),
			recipient(3, order(2), entity.SigningStatusNotSigned, entity.RecipientRoleSigner),
		}

		active := ActiveRecipient(recipients)
		require.NotNil(t, active)
		assert.Equal(t, int64(3), active.ID)
	})

	t.Run("cc recipients are skipped", func(t *testing.T) {
		recipients := []entity.Recipient{
			recipient(1, order(1), entity.SigningStatusNotSigned, entity.RecipientRoleCC),
			recipient(2, order(2), entity.SigningStatusNotSigned, entity.RecipientRoleApprover),
		}

		active := ActiveRecipient(recipients)
		require.NotNil(t, active)
		assert.Equal(t, int64(2), active.ID)
	})

	t.Run("none left", func(t *testing.T) {
		recipients := []entity.Recipient{
			recipient(1, order(1), entity.SigningStatusSigned, entity.RecipientRoleSigner),
			recipient(2, nil, entity.SigningStatusNotSigned, entity.RecipientRoleCC),
		}
		assert.Nil(t, ActiveRecipient(recipients))
	})
}

func TestRecipientsToNotify(t *testing.T) {
	sequential := &entity.Envelope{SigningOrder: entity.SigningOrderSequential}
	parallel := &entity.Envelope{SigningOrder: entity.SigningOrderParallel}

	t.Run("sequential picks only the next recipient", func(t *testing.T) {
		recipients := []entity.Recipient{
			recipient(1, order(1), entity.SigningStatusSigned, entity.RecipientRoleSigner),
			recipient(2, order(2), entity.SigningStatusNotSigned, entity.RecipientRoleSigner),
			recipient(3, order(3), entity.SigningStatusNotSigned, entity.RecipientRoleSigner),
		}

		next := RecipientsToNotify(sequential, recipients)
		require.Len(t, next, 1)
		assert.Equal(t, int64(2), next[0].ID)
	})

	t.Run("sequential does not resend", func(t *testing.T) {
		r := recipient(2, order(2), entity.SigningStatusNotSigned, entity.RecipientRoleSigner)
		r.SendStatus = entity.SendStatusSent

		assert.Empty(t, RecipientsToNotify(sequential, []entity.Recipient{r}))
	})

	t.Run("parallel picks every unsent pending recipient", func(t *testing.T) {
		sent := recipient(2, nil, entity.SigningStatusNotSigned, entity.RecipientRoleSigner)
		sent.SendStatus = entity.SendStatusSent
		recipients := []entity.Recipient{
			recipient(1, nil, entity.SigningStatusNotSigned, entity.RecipientRoleSigner),
			sent,
			recipient(3, nil, entity.SigningStatusNotSigned, entity.RecipientRoleCC),
			recipient(4, nil, entity.SigningStatusNotSigned, entity.RecipientRoleViewer),
		}

		next := RecipientsToNotify(parallel, recipients)
		require.Len(t, next, 2)
		assert.Equal(t, int64(1), next[0].ID)
		assert.Equal(t, int64(4), next[1].ID)
	})
}

func TestIsComplete(t *testing.T) {
	assert.True(t, IsComplete([]entity.Recipient{
		recipient(1, nil, entity.SigningStatusSigned, entity.RecipientRoleSigner),
		recipient(2, nil, entity.SigningStatusNotSigned, entity.RecipientRoleCC),
	}))
	assert.False(t, IsComplete([]entity.Recipient{
		recipient(1, nil, entity.SigningStatusSigned, entity.RecipientRoleSigner),
		recipient(2, nil, entity.SigningStatusRejected, entity.RecipientRoleSigner),
	}))
}

func TestRequiresSecondFactor(t *testing.T) {
	envelope := &entity.Envelope{AuthOptions: entity.EnvelopeAuthOptions{
		GlobalActionAuth: []entity.ActionAuth{entity.ActionAuthTwoFactor},
	}}

	inherits := &entity.Recipient{}
	assert.True(t, RequiresSecondFactor(envelope, inherits))

	overrides := &entity.Recipient{AuthOptions: entity.RecipientAuthOptions{
		ActionAuth: []entity.ActionAuth{entity.ActionAuthExplicitNone},
	}}
	assert.False(t, RequiresSecondFactor(envelope, overrides))
}
