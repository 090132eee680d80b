package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsType(t *testing.T) {
	err := fmt.Errorf("loading index: %w", Corrupt("bad trailer", nil))
	assert.True(t, IsType(err, ErrorTypeCorrupt))
	assert.False(t, IsType(err, ErrorTypeIO))
	assert.False(t, IsType(stderrors.New("plain"), ErrorTypeCorrupt))
}

func TestUnwrap(t *testing.T) {
	err := IO("writing object", fs.ErrPermission)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.Equal(t, "writing object: permission denied", err.Error())
}

func TestNoMatch(t *testing.T) {
	err := NoMatch("missing.txt")
	assert.Equal(t, ErrorTypeNoMatch, err.Type)
	assert.Contains(t, err.Error(), `"missing.txt"`)
}
