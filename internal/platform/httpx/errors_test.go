package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coincraft/coincraft/internal/shared"
)

func TestRespondErrorMapsTaxonomy(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("goals: %w", shared.ErrNotFound), http.StatusNotFound},
		{shared.ErrForbidden, http.StatusForbidden},
		{shared.ErrUnauthorized, http.StatusUnauthorized},
		{shared.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{shared.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{shared.ErrAlreadyApproved, http.StatusConflict},
		{shared.ErrNotYetCompleted, http.StatusConflict},
		{shared.ErrAlreadyDecided, http.StatusConflict},
		{shared.ErrValidation, http.StatusBadRequest},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, tc.err.Error())

		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, tc.status, body.Status)
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pq: password authentication failed"))

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Empty(t, body.Detail)
}
