package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/workflowlens/runner-api/internal/store"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		wantIs  error
		wantNil bool
	}{
		{
			name:    "nil_error",
			err:     nil,
			wantNil: true,
		},
		{
			name:   "no_rows_maps_to_not_found",
			err:    sql.ErrNoRows,
			wantIs: store.ErrNotFound,
		},
		{
			name:   "bad_conn_maps_to_unavailable",
			err:    driver.ErrBadConn,
			wantIs: store.ErrStoreUnavailable,
		},
		{
			name:   "deadline_maps_to_unavailable",
			err:    fmt.Errorf("query: %w", context.DeadlineExceeded),
			wantIs: store.ErrStoreUnavailable,
		},
		{
			name:   "connection_exception_maps_to_unavailable",
			err:    &pgconn.PgError{Code: "08006"},
			wantIs: store.ErrStoreUnavailable,
		},
		{
			name:   "too_many_connections_maps_to_unavailable",
			err:    &pgconn.PgError{Code: "53300"},
			wantIs: store.ErrStoreUnavailable,
		},
		{
			name:   "admin_shutdown_maps_to_unavailable",
			err:    &pgconn.PgError{Code: "57P01"},
			wantIs: store.ErrStoreUnavailable,
		},
		{
			name:   "unique_violation_maps_to_invalid_entity",
			err:    &pgconn.PgError{Code: "23505", ConstraintName: "jobs_pkey"},
			wantIs: store.ErrInvalidEntity,
		},
		{
			name:   "check_violation_maps_to_invalid_entity",
			err:    &pgconn.PgError{Code: "23514", ConstraintName: "jobs_owner_iff_processing"},
			wantIs: store.ErrInvalidEntity,
		},
		{
			name: "unknown_error_passes_through",
			err:  errors.New("some other failure"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mapped := MapError(tt.err)
			if tt.wantNil {
				assert.NoError(t, mapped)
				return
			}
			if tt.wantIs != nil {
				assert.ErrorIs(t, mapped, tt.wantIs)
				return
			}
			assert.Equal(t, tt.err, mapped)
		})
	}
}

func TestIsUnavailableError(t *testing.T) {
	t.Parallel()

	assert.False(t, IsUnavailableError(nil))
	assert.False(t, IsUnavailableError(sql.ErrNoRows))
	assert.False(t, IsUnavailableError(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUnavailableError(driver.ErrBadConn))
	assert.True(t, IsUnavailableError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.True(t, IsUnavailableError(&pgconn.PgError{Code: "08001"}))
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "jobs_pkey"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23514"}))
	assert.False(t, IsUniqueViolation(errors.New("some other failure")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNotFoundError(sql.ErrNoRows))
	assert.True(t, IsNotFoundError(store.ErrJobNotFound))
	assert.True(t, IsNotFoundError(fmt.Errorf("wrapped: %w", store.ErrNotFound)))
	assert.False(t, IsNotFoundError(store.ErrConflict))
	assert.False(t, IsNotFoundError(nil))
}
