package domainerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	cause := errors.New("pq: relation does not exist")

	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: cause, want: CodeInternal},
		{name: "coded", err: New(CodeNotFound, "case not found"), want: CodeNotFound},
		{name: "wrapped coded", err: fmt.Errorf("assign: %w", New(CodeConflict, "taken")), want: CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestWrap_HidesCause(t *testing.T) {
	cause := errors.New("pq: duplicate key value violates unique constraint")
	err := Wrap(cause, CodeInternal, "failed to save case")

	assert.Equal(t, "failed to save case", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to save case", Message(err))
	assert.Equal(t, "internal error", Message(cause))
	assert.True(t, Is(err, CodeInternal))
	assert.False(t, Is(nil, CodeInternal))
}
