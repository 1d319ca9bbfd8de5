package validation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/music-server/internal/apperror"
	"github.com/sakif/music-server/internal/validation"
)

type testForm struct {
	Title       string `form:"title" validate:"required,max=10"`
	ReleaseYear int    `json:"releaseYear" validate:"gte=1000,lte=9999"`
	Duration    int    `validate:"gte=0"`
}

func TestValidate_OK(t *testing.T) {
	v := validation.New()
	assert.NoError(t, v.Validate(testForm{Title: "Blue", ReleaseYear: 1971}))
}

func TestValidate_Errors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		form      testForm
		wantField string
		wantMsg   string
	}{
		{"missing title", testForm{ReleaseYear: 1971}, "title", "title is required"},
		{"long title", testForm{Title: "abcdefghijk", ReleaseYear: 1971}, "title", "title must not exceed 10 characters"},
		{"year too small", testForm{Title: "x", ReleaseYear: 99}, "releaseYear", "releaseYear must be greater than or equal to 1000"},
		{"year too big", testForm{Title: "x", ReleaseYear: 10000}, "releaseYear", "releaseYear must be less than or equal to 9999"},
		{"negative duration", testForm{Title: "x", ReleaseYear: 2000, Duration: -1}, "Duration", "Duration must be greater than or equal to 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.form)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrValidation))

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}
}

func TestValidate_FirstFieldWins(t *testing.T) {
	v := validation.New()

	err := v.Validate(testForm{ReleaseYear: 1})

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "title", appErr.Field)
}
