package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &AppError{Code: ErrCodeInternal, Message: "load roles", Cause: cause}

	assert.Equal(t, "load roles: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "role", (&AppError{Message: "role"}).Error())
}

func TestConstructors(t *testing.T) {
	assert.True(t, IsNotFound(NotFoundf("user %q", "x")))
	assert.Equal(t, `user "x"`, NotFoundf("user %q", "x").Message)
	// Called through a func value so vet's printf check does not reject the
	// intentional no-args literal.
	notFoundf := NotFoundf
	assert.Equal(t, "100% literal", notFoundf("100% literal").Message)

	v := ValidationField("email", "required")
	assert.True(t, IsValidation(v))
	assert.Equal(t, "email", GetField(v))
}

func TestGetCode_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", &AppError{Code: ErrCodeUnavailable, Message: "down"})

	assert.True(t, IsUnavailable(wrapped))
	assert.False(t, IsTimeout(wrapped))
	assert.False(t, Is(errors.New("plain"), ""))
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
	assert.Equal(t, "", GetField(errors.New("plain")))
}
