package imap

import (
	"fmt"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"

	"github.com/mailquill/backend/internal/models"
)

// ParseMessage converts a fetched IMAP message into an Email. Parse failures
// never drop the message: a message whose content cannot be decoded is still
// emitted, with a body that says so.
func ParseMessage(imapMsg *imap.Message, folder string) models.Email {
	email := models.Email{
		ID:     fmt.Sprintf("%s:%d", folder, imapMsg.Uid),
		UID:    imapMsg.Uid,
		Folder: folder,
		Flags:  normalizeFlags(imapMsg.Flags),
	}

	for _, flag := range imapMsg.Flags {
		if flag == imap.SeenFlag {
			email.IsRead = true
		}
	}

	if imapMsg.Envelope != nil {
		email.Subject = imapMsg.Envelope.Subject
		if len(imapMsg.Envelope.From) > 0 {
			email.From = formatAddress(imapMsg.Envelope.From[0])
		}
		if !imapMsg.Envelope.Date.IsZero() {
			email.Date = imapMsg.Envelope.Date
		}
	}
	if email.Date.IsZero() {
		email.Date = imapMsg.InternalDate
	}

	email.Body = parseBody(imapMsg)

	return email
}

// normalizeFlags cleans the FETCH flag set. System flags pass through
// unchanged; server-specific keywords (Gmail labels and the like) arrive
// quoted on some servers and may repeat across responses, so they are
// unquoted and deduplicated.
func normalizeFlags(flags []string) []string {
	seen := make(map[string]struct{}, len(flags))
	normalized := make([]string, 0, len(flags))

	for _, flag := range flags {
		if !strings.HasPrefix(flag, "\\") {
			flag = strings.Trim(flag, "\"")
		}
		if flag == "" {
			continue
		}
		if _, dup := seen[flag]; dup {
			continue
		}
		seen[flag] = struct{}{}
		normalized = append(normalized, flag)
	}

	return normalized
}

// parseBody decodes the raw transfer-encoded content into readable text.
func parseBody(imapMsg *imap.Message) string {
	section := &imap.BodySectionName{Peek: true}
	bodyReader := imapMsg.GetBody(section)
	if bodyReader == nil {
		// Headers-only fetch; nothing to decode.
		return ""
	}

	envelope, err := enmime.ReadEnvelope(bodyReader)
	if err != nil {
		return fmt.Sprintf("(parse error: %v)", err)
	}

	if envelope.Text != "" {
		return envelope.Text
	}
	if envelope.HTML != "" {
		return "(HTML message, no plain text part)"
	}
	return ""
}

// formatAddress formats an IMAP address to a display string.
func formatAddress(address *imap.Address) string {
	if address == nil {
		return ""
	}

	if address.MailboxName == "" && address.HostName == "" {
		return ""
	}

	if address.PersonalName != "" {
		return fmt.Sprintf("%s <%s@%s>", address.PersonalName, address.MailboxName, address.HostName)
	}

	return fmt.Sprintf("%s@%s", address.MailboxName, address.HostName)
}
