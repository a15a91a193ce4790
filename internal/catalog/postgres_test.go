package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorageErrPassesDomainErrorsThrough(t *testing.T) {
	domainErrs := []error{
		&ValidationError{Field: "sku", Reason: "bad"},
		&DuplicateSKUError{SKU: "DUP-000001"},
		&NotFoundError{ID: "missing"},
		&VersionConflictError{ID: "p1", ExpectedVersion: 0, CurrentVersion: 2},
		&BatchError{Items: []BatchItemError{{Index: 0, SKU: "X-1", Err: errors.New("boom")}}},
	}
	for _, err := range domainErrs {
		got := storageErr(err)
		require.Equal(t, err, got, "domain error %T must not be wrapped", err)
		require.NotErrorIs(t, got, ErrStorageUnavailable)
	}

	// Wrapped domain errors stay recognisable too.
	wrapped := fmt.Errorf("tx: %w", &NotFoundError{ID: "p2"})
	got := storageErr(wrapped)
	var notFound *NotFoundError
	require.ErrorAs(t, got, &notFound)
	require.NotErrorIs(t, got, ErrStorageUnavailable)
}

func TestStorageErrPassesContextErrorsThrough(t *testing.T) {
	require.ErrorIs(t, storageErr(context.Canceled), context.Canceled)
	require.NotErrorIs(t, storageErr(context.Canceled), ErrStorageUnavailable)

	deadline := fmt.Errorf("query: %w", context.DeadlineExceeded)
	got := storageErr(deadline)
	require.ErrorIs(t, got, context.DeadlineExceeded)
	require.NotErrorIs(t, got, ErrStorageUnavailable)
}

func TestStorageErrWrapsInfrastructureFailures(t *testing.T) {
	require.NoError(t, storageErr(nil))

	got := storageErr(errors.New("connection refused"))
	require.ErrorIs(t, got, ErrStorageUnavailable)
	require.Contains(t, got.Error(), "connection refused")
}
