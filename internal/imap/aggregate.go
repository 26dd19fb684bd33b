package imap

import (
	"math"
	"sort"
	"strings"

	"github.com/mailquill/backend/internal/models"
)

const (
	// allFoldersMaxResults caps the overall result count when every folder
	// is queried, whatever the user asked for. Without it a mailbox with
	// many folders would fan out unbounded.
	allFoldersMaxResults = 100
	// minPerFolderLimit keeps tiny per-folder quotas from starving folders
	// when the requested maximum is spread across many of them.
	minPerFolderLimit = 10
	// perFolderOverfetchFactor over-queries each folder so that the truly
	// newest messages across all folders survive the final truncation.
	perFolderOverfetchFactor = 1.5
	// defaultMaxResults applies when a single-folder query asks for zero or
	// a negative maximum. An unset maximum must never mean unlimited.
	defaultMaxResults = 100
)

// EffectiveLimits computes the overall result cap and the per-folder fetch
// limit for a query. Single-folder queries use maxResults directly, falling
// back to a default when it is unset; all-folder queries are capped at a
// fixed ceiling and each folder is queried generously enough that global
// recency is still likely captured.
func EffectiveLimits(maxResults int, fetchAllFolders bool, folderCount int) (effectiveMax, perFolderLimit int) {
	if !fetchAllFolders {
		if maxResults <= 0 {
			maxResults = defaultMaxResults
		}
		return maxResults, maxResults
	}

	effectiveMax = maxResults
	if effectiveMax <= 0 || effectiveMax > allFoldersMaxResults {
		effectiveMax = allFoldersMaxResults
	}

	if folderCount <= 0 {
		return effectiveMax, effectiveMax
	}

	perFolderLimit = int(math.Ceil(float64(effectiveMax) * perFolderOverfetchFactor / float64(folderCount)))
	if perFolderLimit < minPerFolderLimit {
		perFolderLimit = minPerFolderLimit
	}

	return effectiveMax, perFolderLimit
}

// MergeAndLimit sorts the combined per-folder results newest first and
// truncates to the overall maximum. Ties sort by ID to keep output
// deterministic.
func MergeAndLimit(emails []models.Email, maxResults int) []models.Email {
	merged := append([]models.Email(nil), emails...)

	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].Date.Equal(merged[j].Date) {
			return merged[i].Date.After(merged[j].Date)
		}
		return merged[i].ID < merged[j].ID
	})

	if maxResults > 0 && len(merged) > maxResults {
		merged = merged[:maxResults]
	}

	return merged
}

// nonMailContainers are folder paths that show up in enumeration but hold no
// mail of their own.
var nonMailContainers = []string{"[Gmail]", "[Google Mail]"}

// IsNonMailContainer reports whether the path is a known grouping folder
// that should be skipped even when it is listed as selectable.
func IsNonMailContainer(path string) bool {
	for _, container := range nonMailContainers {
		if strings.EqualFold(path, container) {
			return true
		}
	}
	return false
}
