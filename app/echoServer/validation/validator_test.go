package validation

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type sampleReq struct {
	BookID             int64  `validate:"required,gt=0"`
	ExpectedReturnDate string `validate:"required,datetime=2006-01-02"`
}

func TestValidate_Passes(t *testing.T) {
	v := New()
	require.NoError(t, v.Validate(sampleReq{BookID: 1, ExpectedReturnDate: "2025-03-10"}))
}

func TestValidate_ReportsEachViolation(t *testing.T) {
	v := New()

	err := v.Validate(sampleReq{BookID: 0, ExpectedReturnDate: "not-a-date"})
	require.Error(t, err)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusBadRequest, he.Code)

	msg, ok := he.Message.(string)
	require.True(t, ok)
	require.Contains(t, msg, "BookID")
	require.Contains(t, msg, "ExpectedReturnDate")
}
