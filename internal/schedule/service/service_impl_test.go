package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/dinein/internal/audit/domain"
	auditrepo "github.com/smallbiznis/dinein/internal/audit/repository"
	auditservice "github.com/smallbiznis/dinein/internal/audit/service"
	"github.com/smallbiznis/dinein/internal/clock"
	"github.com/smallbiznis/dinein/internal/orderlock"
	scheduledomain "github.com/smallbiznis/dinein/internal/schedule/domain"
	schedulerepo "github.com/smallbiznis/dinein/internal/schedule/repository"
	scheduleservice "github.com/smallbiznis/dinein/internal/schedule/service"
	"github.com/smallbiznis/dinein/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) (scheduledomain.Service, auditdomain.Service) {
	t.Helper()
	db := testsupport.NewDB(t, &scheduledomain.Shift{})
	node := testsupport.Node(t)
	fc := clock.NewFakeClock(time.Date(2026, 4, 30, 8, 0, 0, 0, time.UTC))
	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: fc, Repo: auditrepo.Provide(),
	})
	svc := scheduleservice.NewService(scheduleservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fc,
		Repo:   schedulerepo.Provide(),
		Locker: orderlock.NewGuard(orderlock.NewKeyedMutex(), nil, time.Second, nil),
		Audit:  audit,
	})
	return svc, audit
}

func assign(svc scheduledomain.Service, employee int64, date, start, end string) (*scheduledomain.Shift, error) {
	return svc.AssignShift(context.Background(), scheduledomain.AssignShiftRequest{
		EmployeeID: snowflake.ID(500 + employee),
		OutletID:   1000,
		Date:       date,
		Start:      start,
		End:        end,
		AssignedBy: "manager-1",
	})
}

func TestAssignShiftRejectsOverlap(t *testing.T) {
	svc, audit := newService(t)

	morning, err := assign(svc, 1, "2026-05-01", "09:00", "13:00")
	require.NoError(t, err)
	assert.Equal(t, "2026-05-01", morning.ShiftDate)
	assert.Equal(t, scheduledomain.ShiftStatusScheduled, morning.Status)

	_, err = assign(svc, 1, "2026-05-01", "12:00", "15:00")
	assert.ErrorIs(t, err, scheduledomain.ErrShiftConflict)

	_, err = assign(svc, 1, "2026-05-01", "13:00", "17:00")
	require.NoError(t, err)
	_, err = assign(svc, 2, "2026-05-01", "09:00", "13:00")
	require.NoError(t, err)
	_, err = assign(svc, 1, "2026-05-02", "09:00", "13:00")
	require.NoError(t, err)

	logs, err := audit.ListForTarget(context.Background(), auditdomain.TargetShift, morning.ID.String())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, auditdomain.ActionShiftAssigned, logs[0].Action)
}

func TestCancelShiftFreesSpan(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	shift, err := assign(svc, 1, "2026-05-01", "18:00", "22:00")
	require.NoError(t, err)

	cancelled, err := svc.CancelShift(ctx, shift.ID, "manager-1")
	require.NoError(t, err)
	assert.Equal(t, scheduledomain.ShiftStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	again, err := svc.CancelShift(ctx, shift.ID, "manager-1")
	require.NoError(t, err)
	assert.Equal(t, scheduledomain.ShiftStatusCancelled, again.Status)

	_, err = assign(svc, 1, "2026-05-01", "19:00", "21:00")
	require.NoError(t, err)

	_, err = svc.CancelShift(ctx, 4242, "manager-1")
	assert.ErrorIs(t, err, scheduledomain.ErrShiftNotFound)

	shifts, err := svc.ListShifts(ctx, shift.EmployeeID, "2026-05-01")
	require.NoError(t, err)
	assert.Len(t, shifts, 2)
}

func TestAssignShiftValidation(t *testing.T) {
	svc, _ := newService(t)

	_, err := assign(svc, 1, "2026-05-01", "13:00", "13:00")
	assert.ErrorIs(t, err, scheduledomain.ErrInvalidShift)
	_, err = assign(svc, 1, "2026-05-01", "22:00", "02:00")
	assert.ErrorIs(t, err, scheduledomain.ErrInvalidShift)
	_, err = assign(svc, 1, "01/05/2026", "09:00", "13:00")
	assert.ErrorIs(t, err, scheduledomain.ErrInvalidShift)
	_, err = assign(svc, 1, "2026-05-01", "9am", "13:00")
	assert.ErrorIs(t, err, scheduledomain.ErrInvalidShift)
}
