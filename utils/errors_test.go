package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorFormatting(t *testing.T) {
	assert.Equal(t, "Login failed: connection refused",
		UnauthorizedError("Login failed", fmt.Errorf("connection refused")).Error())
	assert.Equal(t, "Not authenticated",
		UnauthorizedError("Not authenticated", nil).Error())
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := InternalServerError("Failed to fetch headers", cause)

	assert.True(t, errors.Is(err, cause))

	var appErr *AppError
	assert.True(t, errors.As(error(err), &appErr))
	assert.Equal(t, 500, appErr.Code)
}
