package imap

import (
	"fmt"

	"github.com/emersion/go-imap"

	"github.com/mailquill/backend/internal/models"
)

// FolderError reports that a specific folder could not be opened, searched
// or fetched. The caller decides whether that aborts the whole query
// (single-folder mode) or only skips the folder (all-folders mode).
type FolderError struct {
	Folder string
	Err    error
}

func (e *FolderError) Error() string {
	return fmt.Sprintf("folder %q: %v", e.Folder, e.Err)
}

func (e *FolderError) Unwrap() error {
	return e.Err
}

// FetchFolder opens the folder read-only, searches it with the given
// criteria and returns the newest perFolderLimit matches as parsed emails.
// The folder stays selected afterwards so thread resolution can follow.
func FetchFolder(s *Session, folder string, criteria models.SearchCriteria, perFolderLimit int) ([]models.Email, error) {
	mbox, err := s.Client().Select(folder, true)
	if err != nil {
		return nil, &FolderError{Folder: folder, Err: fmt.Errorf("failed to open: %w", err)}
	}

	// An empty folder needs no SEARCH round trip.
	if mbox.Messages == 0 {
		return nil, nil
	}

	uids, err := s.Client().UidSearch(BuildSearchCriteria(criteria))
	if err != nil {
		return nil, &FolderError{Folder: folder, Err: fmt.Errorf("search failed: %w", err)}
	}

	if len(uids) == 0 {
		return nil, nil
	}

	// Servers hand UIDs back oldest first, so the last N approximate the N
	// most recent. Soft assumption: UID order can diverge from time order
	// after moves or copies; final aggregation re-sorts by date.
	if perFolderLimit > 0 && len(uids) > perFolderLimit {
		uids = uids[len(uids)-perFolderLimit:]
	}

	messages, err := fetchFullMessages(s, uids)
	if err != nil {
		return nil, &FolderError{Folder: folder, Err: err}
	}

	emails := make([]models.Email, 0, len(messages))
	for _, msg := range messages {
		emails = append(emails, ParseMessage(msg, folder))
	}

	return emails, nil
}

// fetchFullMessages retrieves envelopes, flags and full bodies for the given
// UIDs. Bodies are fetched with PEEK so the query does not mark anything as
// read.
func fetchFullMessages(s *Session, uids []uint32) ([]*imap.Message, error) {
	seqSet := new(imap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchInternalDate,
		imap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- s.Client().UidFetch(seqSet, items, messages)
	}()

	var result []*imap.Message
	for msg := range messages {
		result = append(result, msg)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return result, nil
}
