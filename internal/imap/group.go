package imap

import (
	"sort"
	"strings"

	"github.com/mailquill/backend/internal/models"
)

// GroupMessages collapses messages that belong to the same conversation into
// one representative message each. The grouping key is the server-provided
// thread identifier when present, otherwise the normalized subject. The
// representative is the newest member; its flag set becomes the union of the
// group's flags and its folder set the union of the group's folder
// memberships. The reduction is pure and order-independent: permuting the
// input never changes the output.
func GroupMessages(emails []models.Email) []models.Email {
	groups := make(map[string][]models.Email)
	for _, email := range emails {
		key := groupKey(email)
		groups[key] = append(groups[key], email)
	}

	grouped := make([]models.Email, 0, len(groups))
	for _, members := range groups {
		grouped = append(grouped, mergeGroup(members))
	}

	sort.Slice(grouped, func(i, j int) bool {
		if !grouped[i].Date.Equal(grouped[j].Date) {
			return grouped[i].Date.After(grouped[j].Date)
		}
		return grouped[i].ID < grouped[j].ID
	})

	return grouped
}

func groupKey(email models.Email) string {
	if email.ThreadID != "" {
		return "thread\x00" + email.ThreadID
	}
	return "subject\x00" + NormalizeSubject(email.Subject)
}

// mergeGroup picks the latest member as representative and unions flags and
// folder memberships across the group. Date ties break on ID so the same set
// always yields the same representative.
func mergeGroup(members []models.Email) models.Email {
	representative := members[0]
	for _, member := range members[1:] {
		if member.Date.After(representative.Date) ||
			(member.Date.Equal(representative.Date) && member.ID < representative.ID) {
			representative = member
		}
	}

	flagSet := make(map[string]struct{})
	folderSet := make(map[string]struct{})
	for _, member := range members {
		for _, flag := range member.Flags {
			flagSet[flag] = struct{}{}
		}
		folderSet[member.Folder] = struct{}{}
		for _, folder := range member.Folders {
			folderSet[folder] = struct{}{}
		}
		if member.IsRead {
			representative.IsRead = true
		}
	}

	representative.Flags = sortedKeys(flagSet)
	representative.Folders = sortedKeys(folderSet)

	return representative
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// replyPrefixes are the reply/forward markers stripped from a subject before
// it is used as a grouping key.
var replyPrefixes = []string{"re:", "fw:", "fwd:"}

// NormalizeSubject produces the subject-based grouping key: leading
// reply/forward prefix removed, internal whitespace collapsed, trimmed and
// lowercased.
func NormalizeSubject(subject string) string {
	normalized := strings.TrimSpace(subject)

	lower := strings.ToLower(normalized)
	for _, prefix := range replyPrefixes {
		if strings.HasPrefix(lower, prefix) {
			normalized = strings.TrimSpace(normalized[len(prefix):])
			break
		}
	}

	normalized = strings.Join(strings.Fields(normalized), " ")

	return strings.ToLower(normalized)
}
