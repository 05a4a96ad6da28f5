package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, ReasonDeadlineExceeded},
		{"lock_timeout", &pgconn.PgError{Code: "55P03"}, ReasonLockTimeout},
		{"serialization", fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"}), ReasonSerializationFailure},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, ReasonSerializationFailure},
		{"duplicate", gorm.ErrDuplicatedKey, ReasonUniqueViolation},
		{"sqlite_duplicate", errors.New("UNIQUE constraint failed: kds_stations.code"), ReasonUniqueViolation},
		{"other", errors.New("boom"), ReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyError(tc.err))
		})
	}
}

func TestIsDuplicateKeyErrNil(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
}
