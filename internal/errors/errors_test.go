package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersistErrorUnwraps(t *testing.T) {
	underlying := errors.New("disk full")
	err := NewPersistError("SaveEntry", underlying)

	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "SaveEntry")
}

func TestClientErrorMessageIncludesRawLine(t *testing.T) {
	err := NewClientError("SEARCH {bad json", errors.New("unexpected EOF"))
	assert.Contains(t, err.Error(), "SEARCH {bad json")
}

func TestFatalErrorWrapsBindFailure(t *testing.T) {
	underlying := errors.New("address already in use")
	err := NewFatalError("server.Start", underlying)
	assert.ErrorIs(t, err, underlying)
}
