package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/dinein/internal/audit/domain"
	"github.com/smallbiznis/dinein/internal/clock"
	"github.com/smallbiznis/dinein/internal/orderlock"
	scheduledomain "github.com/smallbiznis/dinein/internal/schedule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   scheduledomain.Repository
	Locker orderlock.Locker
	Audit  auditdomain.Service
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   scheduledomain.Repository
	locker orderlock.Locker
	audit  auditdomain.Service
}

func NewService(p Params) scheduledomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("schedule.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		locker: p.Locker,
		audit:  p.Audit,
	}
}

// AssignShift books an employee unless the span overlaps one of their live
// shifts on the same date. Writers for one employee are serialized.
func (s *Service) AssignShift(ctx context.Context, req scheduledomain.AssignShiftRequest) (*scheduledomain.Shift, error) {
	assignedBy := strings.TrimSpace(req.AssignedBy)
	if req.EmployeeID == 0 || req.OutletID == 0 || assignedBy == "" {
		return nil, scheduledomain.ErrInvalidShift
	}
	day, err := time.Parse(scheduledomain.DateLayout, strings.TrimSpace(req.Date))
	if err != nil {
		return nil, scheduledomain.ErrInvalidShift
	}
	start, err := atClock(day, req.Start)
	if err != nil {
		return nil, err
	}
	end, err := atClock(day, req.End)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, scheduledomain.ErrInvalidShift
	}

	release, err := s.locker.Lock(ctx, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	defer release()

	shift := scheduledomain.Shift{
		ID:         s.genID.Generate(),
		EmployeeID: req.EmployeeID,
		OutletID:   req.OutletID,
		ShiftDate:  day.Format(scheduledomain.DateLayout),
		StartAt:    start,
		EndAt:      end,
		Status:     scheduledomain.ShiftStatusScheduled,
		AssignedBy: assignedBy,
		CreatedAt:  s.clock.Now(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.ListForEmployee(ctx, tx, shift.EmployeeID, shift.ShiftDate)
		if err != nil {
			return err
		}
		intervals := make([]scheduledomain.Interval, 0, len(existing))
		for _, e := range existing {
			intervals = append(intervals, e.Interval())
		}
		if scheduledomain.HasOverlap(intervals, shift.Interval()) {
			return scheduledomain.ErrShiftConflict
		}
		if err := s.repo.Insert(ctx, tx, &shift); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			ActorID:    assignedBy,
			Action:     auditdomain.ActionShiftAssigned,
			TargetType: auditdomain.TargetShift,
			TargetID:   shift.ID.String(),
			Metadata: map[string]any{
				"employee_id": shift.EmployeeID.String(),
				"date":        shift.ShiftDate,
				"start":       start.Format("15:04"),
				"end":         end.Format("15:04"),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

// CancelShift frees the span. Cancelling twice returns the shift unchanged.
func (s *Service) CancelShift(ctx context.Context, shiftID snowflake.ID, cancelledBy string) (*scheduledomain.Shift, error) {
	cancelledBy = strings.TrimSpace(cancelledBy)
	if cancelledBy == "" {
		return nil, scheduledomain.ErrInvalidShift
	}

	var shift scheduledomain.Shift
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.Find(ctx, tx, shiftID)
		if err != nil {
			return err
		}
		if found == nil {
			return scheduledomain.ErrShiftNotFound
		}
		shift = *found
		if shift.Status == scheduledomain.ShiftStatusCancelled {
			return nil
		}

		now := s.clock.Now()
		shift.Status = scheduledomain.ShiftStatusCancelled
		shift.CancelledAt = &now
		if err := s.repo.Update(ctx, tx, &shift); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			ActorID:    cancelledBy,
			Action:     auditdomain.ActionShiftCancelled,
			TargetType: auditdomain.TargetShift,
			TargetID:   shift.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (s *Service) ListShifts(ctx context.Context, employeeID snowflake.ID, date string) ([]scheduledomain.Shift, error) {
	if _, err := time.Parse(scheduledomain.DateLayout, date); err != nil {
		return nil, scheduledomain.ErrInvalidShift
	}
	return s.repo.ListForEmployee(ctx, s.db, employeeID, date)
}

func atClock(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return time.Time{}, scheduledomain.ErrInvalidShift
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
