package imap

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mailquill/backend/internal/models"
)

// FetchRequest bundles everything one retrieval run needs. It is built per
// query and passed in explicitly; the service keeps no ambient account state.
type FetchRequest struct {
	Credentials     models.Credentials
	Folder          string
	FetchAllFolders bool
	Criteria        models.SearchCriteria
	MaxResults      int
	// ResolveThreads runs the THREAD extension per folder so grouping can
	// use server-assigned conversation identity instead of subjects.
	ResolveThreads bool
}

// Fetcher is the retrieval side of the pipeline. The query orchestrator and
// handlers depend on this interface so tests can substitute a fake mailbox.
type Fetcher interface {
	// TestConnection dials and authenticates, then tears the session down.
	TestConnection(creds models.Credentials) error

	// ListFolders enumerates all selectable mailbox paths for the account.
	ListFolders(creds models.Credentials) ([]models.Folder, error)

	// FetchEmails runs the full retrieval pipeline: enumerate target
	// folders, search and fetch each sequentially, aggregate, sort by date
	// and truncate to the effective maximum.
	FetchEmails(ctx context.Context, req FetchRequest) ([]models.Email, error)
}

// Service implements Fetcher against a real IMAP server.
type Service struct {
	log *logrus.Logger
}

// NewService creates a new IMAP retrieval service.
func NewService(log *logrus.Logger) *Service {
	return &Service{log: log}
}

// TestConnection dials and authenticates, then tears the session down.
func (s *Service) TestConnection(creds models.Credentials) error {
	session, err := Connect(creds)
	if err != nil {
		return err
	}
	session.Close()
	return nil
}

// ListFolders enumerates all selectable mailbox paths for the account.
func (s *Service) ListFolders(creds models.Credentials) ([]models.Folder, error) {
	session, err := Connect(creds)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	paths, err := ListFolderPaths(session)
	if err != nil {
		return nil, err
	}

	folders := make([]models.Folder, 0, len(paths))
	for _, path := range paths {
		folders = append(folders, models.Folder{Path: path})
	}

	return folders, nil
}

// FetchEmails runs the retrieval pipeline over one session. Folders are
// fetched sequentially: SELECT is per-connection state, so opening a new
// folder implicitly ends the use of the previous one. In all-folders mode a
// failing folder is logged and skipped; in single-folder mode it aborts the
// query. The session is closed exactly once on every path.
func (s *Service) FetchEmails(ctx context.Context, req FetchRequest) ([]models.Email, error) {
	session, err := Connect(req.Credentials)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	folders, err := s.targetFolders(session, req)
	if err != nil {
		return nil, err
	}

	effectiveMax, perFolderLimit := EffectiveLimits(req.MaxResults, req.FetchAllFolders, len(folders))

	var all []models.Email
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		emails, err := FetchFolder(session, folder, req.Criteria, perFolderLimit)
		if err != nil {
			if !req.FetchAllFolders {
				return nil, err
			}
			s.log.WithError(err).WithField("folder", folder).Warn("Skipping folder")
			continue
		}

		if req.ResolveThreads && len(emails) > 0 {
			s.annotateThreadIDs(session, folder, emails)
		}

		all = append(all, emails...)
	}

	return MergeAndLimit(all, effectiveMax), nil
}

// targetFolders resolves which folders the query runs against.
func (s *Service) targetFolders(session *Session, req FetchRequest) ([]string, error) {
	if !req.FetchAllFolders {
		if req.Folder == "" {
			return []string{"INBOX"}, nil
		}
		return []string{req.Folder}, nil
	}

	paths, err := ListFolderPaths(session)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate folders: %w", err)
	}

	folders := make([]string, 0, len(paths))
	for _, path := range paths {
		if IsNonMailContainer(path) {
			continue
		}
		folders = append(folders, path)
	}

	return folders, nil
}

// annotateThreadIDs fills in conversation identity for the just-fetched
// folder. The folder is still selected after FetchFolder, which the THREAD
// command requires. Missing THREAD support only costs the annotation.
func (s *Service) annotateThreadIDs(session *Session, folder string, emails []models.Email) {
	uidToThreadID, err := ResolveThreadIDs(session, folder)
	if err != nil {
		s.log.WithError(err).WithField("folder", folder).Debug("Thread resolution unavailable")
		return
	}

	for i := range emails {
		if threadID, ok := uidToThreadID[emails[i].UID]; ok {
			emails[i].ThreadID = threadID
		}
	}
}

// Ensure Service implements Fetcher.
var _ Fetcher = (*Service)(nil)
