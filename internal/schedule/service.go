package schedule

import (
	"context"
	"database/sql"

	"ATLAS-backend/internal/platform/apperr"
	platformdb "ATLAS-backend/internal/platform/db"
)

type Service struct {
	db    *sql.DB
	store *Store
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, store: NewStore(db)}
}

// IngestSessions applies a batch from the schedule sync atomically.
func (s *Service) IngestSessions(ctx context.Context, req IngestSessionsRequest) (int, error) {
	if len(req.Sessions) == 0 {
		return 0, apperr.ErrInvalid("sessions must not be empty")
	}
	for _, in := range req.Sessions {
		if !in.EndTime.After(in.StartTime) {
			return 0, apperr.ErrInvalid("end_time must be after start_time")
		}
	}

	err := platformdb.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx platformdb.DBTX) error {
		for _, in := range req.Sessions {
			if err := s.store.UpsertSession(ctx, tx, in); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, apperr.ErrInternal("failed to ingest sessions")
	}
	return len(req.Sessions), nil
}

func (s *Service) GetSession(ctx context.Context, sessionID uint64) (SessionResponse, error) {
	m, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return SessionResponse{}, apperr.ErrInternal("failed to get session")
	}
	if m == nil || m.IsDeleted {
		return SessionResponse{}, apperr.ErrNotFound("session not found")
	}
	return m.toDTO(), nil
}

func (s *Service) ListSessions(ctx context.Context, q ListQuery) ([]SessionResponse, int64, error) {
	rows, total, err := s.store.ListSessions(ctx, q)
	if err != nil {
		return nil, 0, apperr.ErrInternal("failed to list sessions")
	}
	out := make([]SessionResponse, 0, len(rows))
	for i := 0; i < len(rows); i++ {
		out = append(out, rows[i].toDTO())
	}
	return out, total, nil
}

func (s *Service) DeleteSession(ctx context.Context, sessionID uint64) error {
	n, err := s.store.SoftDeleteSession(ctx, sessionID)
	if err != nil {
		return apperr.ErrInternal("failed to delete session")
	}
	if n == 0 {
		return apperr.ErrNotFound("session not found")
	}
	return nil
}

func (s *Service) ReplaceRoster(ctx context.Context, courseCode string, req ReplaceRosterRequest) error {
	if courseCode == "" {
		return apperr.ErrInvalid("course_code is required")
	}
	seen := make(map[string]struct{}, len(req.StudentIDs))
	for _, sid := range req.StudentIDs {
		if sid == "" {
			return apperr.ErrInvalid("student_ids must not contain empty values")
		}
		if _, dup := seen[sid]; dup {
			return apperr.ErrInvalid("student_ids must not contain duplicates")
		}
		seen[sid] = struct{}{}
	}

	err := platformdb.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx platformdb.DBTX) error {
		return s.store.ReplaceRoster(ctx, tx, courseCode, req.StudentIDs)
	})
	if err != nil {
		return apperr.ErrInternal("failed to replace roster")
	}
	return nil
}

func (s *Service) GetRoster(ctx context.Context, courseCode string) (RosterResponse, error) {
	ids, err := s.store.Roster(ctx, courseCode)
	if err != nil {
		return RosterResponse{}, apperr.ErrInternal("failed to get roster")
	}
	return RosterResponse{CourseCode: courseCode, StudentIDs: ids}, nil
}

// ===== lookups used by the resolution and history services =====

func (s *Service) Session(ctx context.Context, sessionID uint64) (*Session, error) {
	m, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if m == nil || m.IsDeleted {
		return nil, nil
	}
	return m, nil
}

func (s *Service) IsMember(ctx context.Context, courseCode, studentID string) (bool, error) {
	return s.store.IsMember(ctx, courseCode, studentID)
}

func (s *Service) Roster(ctx context.Context, courseCode string) ([]string, error) {
	return s.store.Roster(ctx, courseCode)
}

func (s *Service) RosterSize(ctx context.Context, courseCode string) (int, error) {
	return s.store.RosterSize(ctx, courseCode)
}
