package leave

import (
	"context"
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"ATLAS-backend/internal/platform/apperr"
	platformdb "ATLAS-backend/internal/platform/db"
	"ATLAS-backend/internal/schedule"
)

// ===== interfaces =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

type SessionDirectory interface {
	Session(ctx context.Context, sessionID uint64) (*schedule.Session, error)
	IsMember(ctx context.Context, courseCode, studentID string) (bool, error)
}

// ===== Service =====

type Service struct {
	db       *sql.DB
	store    *Store
	sessions SessionDirectory
	clock    Clock
	id       IDGen
}

func NewService(db *sql.DB, sessions SessionDirectory) *Service {
	return &Service{
		db:       db,
		store:    NewStore(db),
		sessions: sessions,
		clock:    realClock{},
		id:       ulidGen{},
	}
}

// Submit files an application with one pending approval row per approver.
func (s *Service) Submit(ctx context.Context, req SubmitRequest, studentID string) (ApplicationResponse, error) {
	if studentID == "" {
		return ApplicationResponse{}, apperr.ErrInvalid("student id is required")
	}
	if len(req.ApproverIDs) == 0 {
		return ApplicationResponse{}, apperr.ErrInvalid("at least one approver is required")
	}
	seen := make(map[string]struct{}, len(req.ApproverIDs))
	for _, id := range req.ApproverIDs {
		if id == "" {
			return ApplicationResponse{}, apperr.ErrInvalid("approver ids must not be empty")
		}
		if _, dup := seen[id]; dup {
			return ApplicationResponse{}, apperr.ErrInvalid("approver ids must not contain duplicates")
		}
		seen[id] = struct{}{}
	}

	sess, err := s.sessions.Session(ctx, req.SessionID)
	if err != nil {
		return ApplicationResponse{}, apperr.ErrInternal("failed to load session")
	}
	if sess == nil {
		return ApplicationResponse{}, apperr.ErrNotFound("session not found")
	}
	member, err := s.sessions.IsMember(ctx, sess.CourseCode, studentID)
	if err != nil {
		return ApplicationResponse{}, apperr.ErrInternal("failed to check roster")
	}
	if !member {
		return ApplicationResponse{}, apperr.ErrNotFound("student is not on the session roster")
	}

	existing, err := s.store.LatestApplicationForPair(ctx, req.SessionID, studentID)
	if err != nil {
		return ApplicationResponse{}, apperr.ErrInternal("failed to look up applications")
	}
	if existing != nil {
		return ApplicationResponse{}, apperr.ErrConflict("an application is already on file for this session")
	}

	idStr, err := s.id.New()
	if err != nil {
		return ApplicationResponse{}, apperr.ErrInternal("failed to generate id")
	}

	app := &Application{
		ApplicationULID: idStr,
		SessionID:       req.SessionID,
		StudentID:       studentID,
		Reason:          req.Reason,
		AttachmentCount: req.AttachmentCount,
		SubmittedAt:     s.clock.Now(),
	}

	err = platformdb.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx platformdb.DBTX) error {
		return s.store.CreateApplication(ctx, tx, app, req.ApproverIDs)
	})
	if err != nil {
		return ApplicationResponse{}, apperr.ErrInternal("failed to submit application")
	}

	approvals, err := s.store.ListApprovals(ctx, app.ApplicationID)
	if err != nil {
		return ApplicationResponse{}, apperr.ErrInternal("failed to load approvals")
	}
	return app.toDTO(approvals), nil
}

// Decide records one approver's decision and re-reduces the application.
func (s *Service) Decide(ctx context.Context, applicationULID, approverID string, req DecideRequest) (ApplicationResponse, error) {
	if approverID == "" {
		return ApplicationResponse{}, apperr.ErrInvalid("approver id is required")
	}
	if req.Decision != ApprovalApproved && req.Decision != ApprovalRejected {
		return ApplicationResponse{}, apperr.ErrInvalid("decision must be approved or rejected")
	}

	app, err := s.store.GetApplicationByULID(ctx, applicationULID)
	if err != nil {
		return ApplicationResponse{}, apperr.ErrInternal("failed to load application")
	}
	if app == nil {
		return ApplicationResponse{}, apperr.ErrNotFound("application not found")
	}
	if app.Status == OutcomeCancelled {
		return ApplicationResponse{}, apperr.ErrInvalid("application has been withdrawn")
	}

	n, err := s.store.DecideApproval(ctx, app.ApplicationID, approverID, req.Decision, req.Comment, s.clock.Now())
	if err != nil {
		return ApplicationResponse{}, apperr.ErrInternal("failed to record decision")
	}
	if n == 0 {
		appr, err := s.store.GetApproval(ctx, app.ApplicationID, approverID)
		if err != nil {
			return ApplicationResponse{}, apperr.ErrInternal("failed to load approval")
		}
		if appr == nil {
			return ApplicationResponse{}, apperr.ErrNotFound("approver is not assigned to this application")
		}
		return ApplicationResponse{}, apperr.ErrInvalid("approval has already been decided")
	}

	approvals, err := s.store.ListApprovals(ctx, app.ApplicationID)
	if err != nil {
		return ApplicationResponse{}, apperr.ErrInternal("failed to load approvals")
	}

	// refresh the cache; the reducer stays the source of truth
	outcome := Reduce(approvals)
	if err := s.store.UpdateCachedStatus(ctx, app.ApplicationID, outcome); err != nil {
		return ApplicationResponse{}, apperr.ErrInternal("failed to update application status")
	}
	app.Status = outcome

	return app.toDTO(approvals), nil
}

// Cancel lets the applicant withdraw; pending approvals become no-ops.
func (s *Service) Cancel(ctx context.Context, applicationULID, studentID string) error {
	app, err := s.store.GetApplicationByULID(ctx, applicationULID)
	if err != nil {
		return apperr.ErrInternal("failed to load application")
	}
	if app == nil {
		return apperr.ErrNotFound("application not found")
	}
	if app.StudentID != studentID {
		return apperr.ErrNotFound("application not found")
	}

	var n int64
	err = platformdb.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx platformdb.DBTX) error {
		n, err = s.store.CancelApplication(ctx, tx, app.ApplicationID)
		return err
	})
	if err != nil {
		return apperr.ErrInternal("failed to cancel application")
	}
	if n == 0 {
		return apperr.ErrInvalid("application is already cancelled")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, applicationULID string) (ApplicationResponse, error) {
	app, err := s.store.GetApplicationByULID(ctx, applicationULID)
	if err != nil {
		return ApplicationResponse{}, apperr.ErrInternal("failed to load application")
	}
	if app == nil {
		return ApplicationResponse{}, apperr.ErrNotFound("application not found")
	}
	approvals, err := s.store.ListApprovals(ctx, app.ApplicationID)
	if err != nil {
		return ApplicationResponse{}, apperr.ErrInternal("failed to load approvals")
	}
	return app.toDTO(approvals), nil
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]ApplicationResponse, int64, error) {
	apps, total, err := s.store.ListApplications(ctx, q)
	if err != nil {
		return nil, 0, apperr.ErrInternal("failed to list applications")
	}
	out := make([]ApplicationResponse, 0, len(apps))
	for i := range apps {
		out = append(out, apps[i].toDTO(nil))
	}
	return out, total, nil
}

// Outcome re-reduces the latest live application for the pair. Used by the
// resolver; OutcomeNone when nothing is on file.
func (s *Service) Outcome(ctx context.Context, sessionID uint64, studentID string) (Outcome, error) {
	app, err := s.store.LatestApplicationForPair(ctx, sessionID, studentID)
	if err != nil {
		return OutcomeNone, err
	}
	if app == nil {
		return OutcomeNone, nil
	}
	approvals, err := s.store.ListApprovals(ctx, app.ApplicationID)
	if err != nil {
		return OutcomeNone, err
	}
	return Reduce(approvals), nil
}
