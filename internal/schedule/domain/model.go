package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const DateLayout = "2006-01-02"

type ShiftStatus string

const (
	ShiftStatusScheduled ShiftStatus = "SCHEDULED"
	ShiftStatusCancelled ShiftStatus = "CANCELLED"
)

type Shift struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	EmployeeID  snowflake.ID `json:"employee_id" gorm:"not null;index:idx_shifts_employee_date,priority:1"`
	OutletID    snowflake.ID `json:"outlet_id" gorm:"not null"`
	ShiftDate   string       `json:"shift_date" gorm:"type:text;not null;index:idx_shifts_employee_date,priority:2"`
	StartAt     time.Time    `json:"start_at" gorm:"not null"`
	EndAt       time.Time    `json:"end_at" gorm:"not null"`
	Status      ShiftStatus  `json:"status" gorm:"type:text;not null"`
	AssignedBy  string       `json:"assigned_by" gorm:"type:text;not null"`
	CancelledAt *time.Time   `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
}

func (Shift) TableName() string { return "shifts" }

func (s Shift) Interval() Interval {
	return Interval{
		SubjectID: s.EmployeeID.Int64(),
		Date:      s.ShiftDate,
		Start:     s.StartAt,
		End:       s.EndAt,
		Cancelled: s.Status == ShiftStatusCancelled,
	}
}

var (
	ErrShiftNotFound = errors.New("shift_not_found")
	ErrShiftConflict = errors.New("shift_conflict")
	ErrInvalidShift  = errors.New("invalid_shift")
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, shift *Shift) error
	Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Shift, error)
	Update(ctx context.Context, db *gorm.DB, shift *Shift) error
	ListForEmployee(ctx context.Context, db *gorm.DB, employeeID snowflake.ID, date string) ([]Shift, error)
}

type Service interface {
	AssignShift(ctx context.Context, req AssignShiftRequest) (*Shift, error)
	CancelShift(ctx context.Context, shiftID snowflake.ID, cancelledBy string) (*Shift, error)
	ListShifts(ctx context.Context, employeeID snowflake.ID, date string) ([]Shift, error)
}

// AssignShiftRequest takes a calendar date and wall-clock times in HH:MM.
// Shifts end on the day they start.
type AssignShiftRequest struct {
	EmployeeID snowflake.ID `json:"employee_id"`
	OutletID   snowflake.ID `json:"outlet_id"`
	Date       string       `json:"date"`
	Start      string       `json:"start"`
	End        string       `json:"end"`
	AssignedBy string       `json:"-"`
}
