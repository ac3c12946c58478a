package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"signflow/internal/domain/entity"
	"signflow/internal/domain/repository"
)

// writeAuditLog appends an audit entry for the recipient. A nil meta marks the
// entry as system-initiated, so it carries no requester IP, user agent or user.
func writeAuditLog(ctx context.Context, q repository.Queries, envelopeID int64, logType entity.AuditLogType, data interface{}, recipient *entity.Recipient, meta *entity.RequestMetadata) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s audit data: %w", logType, err)
	}

	entry := &entity.AuditLogEntry{
		EnvelopeID: envelopeID,
		Type:       logType,
		Data:       raw,
	}
	if recipient != nil {
		entry.Name = recipient.Name
		entry.Email = recipient.Email
	}
	if meta != nil {
		entry.IPAddress = meta.IPAddress
		entry.UserAgent = meta.UserAgent
		entry.UserID = meta.UserID
	}

	if err := q.CreateAuditLogEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to write %s audit log: %w", logType, err)
	}
	return nil
}
