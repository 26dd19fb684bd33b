package imap

import (
	"fmt"

	"github.com/emersion/go-imap"
	sortthread "github.com/emersion/go-imap-sortthread"
)

// ResolveThreadIDs runs the THREAD extension against the currently selected
// folder and maps every message UID to a conversation key derived from its
// thread root. Servers without THREAD support make this return an error; the
// caller falls back to subject-based grouping in that case.
func ResolveThreadIDs(s *Session, folder string) (map[uint32]string, error) {
	threadClient := sortthread.NewThreadClient(s.Client())

	threads, err := threadClient.UidThread(sortthread.References, imap.NewSearchCriteria())
	if err != nil {
		return nil, fmt.Errorf("THREAD command failed: %w", err)
	}

	uidToThreadID := make(map[uint32]string)

	var walk func(t *sortthread.Thread, rootUID uint32)
	walk = func(t *sortthread.Thread, rootUID uint32) {
		if t == nil {
			return
		}
		uidToThreadID[t.Id] = fmt.Sprintf("%s#%d", folder, rootUID)
		for _, child := range t.Children {
			walk(child, rootUID)
		}
	}

	for _, thread := range threads {
		if thread == nil {
			continue
		}
		// Top-level entries are the thread roots.
		walk(thread, thread.Id)
	}

	return uidToThreadID, nil
}
