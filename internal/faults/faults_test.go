package faults_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medagenda/clinic-scheduling/internal/faults"
)

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind error
	}{
		{"validation", faults.Invalidf("bad date %s", "x"), faults.ErrValidation},
		{"not found", faults.Missingf("appointment", "no rows"), faults.ErrNotFound},
		{"conflict", faults.Conflictf("double booking"), faults.ErrConflict},
		{"store", faults.Storef("insert", errors.New("boom")), faults.ErrStore},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.err, tc.kind)
			for _, other := range []error{faults.ErrValidation, faults.ErrNotFound, faults.ErrConflict, faults.ErrStore} {
				if other != tc.kind {
					assert.NotErrorIs(t, tc.err, other)
				}
			}
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("release failed: %w", faults.Invalidf("no releasable appointments"))
	assert.True(t, faults.IsValidation(err))

	var verr *faults.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "no releasable appointments", verr.Msg)
}

func TestStoreErrorExposesDriverFailure(t *testing.T) {
	underlying := errors.New("connection refused")
	err := faults.Storef("search appointments", underlying)

	assert.ErrorIs(t, err, faults.ErrStore)
	assert.ErrorIs(t, err, underlying)
}

func TestNotFoundMessageFallsBackToResource(t *testing.T) {
	err := &faults.NotFoundError{Resource: "receivable"}
	assert.Equal(t, "receivable not found", err.Error())
}
