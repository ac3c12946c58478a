package signing

import (
	"sort"

	"signflow/internal/domain/entity"
)

// SortBySigningOrder orders recipients by signing order ascending with unset orders last,
// breaking ties by ID. The input slice is left untouched.
func SortBySigningOrder(recipients []entity.Recipient) []entity.Recipient {
	sorted := make([]entity.Recipient, len(recipients))
	copy(sorted, recipients)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].SigningOrder, sorted[j].SigningOrder
		switch {
		case a == nil && b == nil:
			return sorted[i].ID < sorted[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a < *b
		default:
			return sorted[i].ID < sorted[j].ID
		}
	})

	return sorted
}

// ActiveRecipient returns the recipient whose turn it is under sequential signing,
// or nil once no one is left to act
func ActiveRecipient(recipients []entity.Recipient) *entity.Recipient {
	for _, recipient := range SortBySigningOrder(recipients) {
		if recipient.SigningStatus == entity.SigningStatusNotSigned && !recipient.IsCC() {
			r := recipient
			return &r
		}
	}
	return nil
}

// PendingRecipients returns the recipients still expected to act, in signing order
func PendingRecipients(recipients []entity.Recipient) []entity.Recipient {
	pending := make([]entity.Recipient, 0, len(recipients))
	for _, recipient := range SortBySigningOrder(recipients) {
		if recipient.IsCC() || recipient.IsTerminal() {
			continue
		}
		pending = append(pending, recipient)
	}
	return pending
}

// RecipientsToNotify picks who should be notified now. Sequential envelopes notify only the
// first pending recipient; parallel envelopes notify all of them. Recipients already sent
// to are never picked again.
func RecipientsToNotify(envelope *entity.Envelope, recipients []entity.Recipient) []entity.Recipient {
	pending := PendingRecipients(recipients)

	if envelope.IsSequential() {
		if len(pending) == 0 || pending[0].SendStatus == entity.SendStatusSent {
			return nil
		}
		return pending[:1]
	}

	result := make([]entity.Recipient, 0, len(pending))
	for _, recipient := range pending {
		if recipient.SendStatus != entity.SendStatusSent {
			result = append(result, recipient)
		}
	}
	return result
}

// IsComplete reports whether every recipient is CC or has signed
func IsComplete(recipients []entity.Recipient) bool {
	for _, recipient := range recipients {
		if !recipient.IsCC() && recipient.SigningStatus != entity.SigningStatusSigned {
			return false
		}
	}
	return true
}

// RequiresAction reports whether any recipient still has something to do
func RequiresAction(recipients []entity.Recipient) bool {
	return !IsComplete(recipients)
}

// DerivedActionAuth resolves the action auth methods that apply to a recipient:
// the recipient's own setting wins over the envelope default
func DerivedActionAuth(envelope *entity.Envelope, recipient *entity.Recipient) []entity.ActionAuth {
	if len(recipient.AuthOptions.ActionAuth) > 0 {
		return recipient.AuthOptions.ActionAuth
	}
	return envelope.AuthOptions.GlobalActionAuth
}

// RequiresSecondFactor reports whether the recipient must pass 2FA before acting
func RequiresSecondFactor(envelope *entity.Envelope, recipient *entity.Recipient) bool {
	for _, auth := range DerivedActionAuth(envelope, recipient) {
		if auth == entity.ActionAuthTwoFactor {
			return true
		}
	}
	return false
}
