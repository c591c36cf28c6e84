package errkind

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelOfItsKind(t *testing.T) {
	err := New(Decode, "/photos/a.png", fs.ErrNotExist)

	assert.ErrorIs(t, err, ErrDecode)
	assert.NotErrorIs(t, err, ErrAssemble)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, "DecodeError /photos/a.png: file does not exist", err.Error())
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("group invoices: %w", Errorf(Assemble, "", "no pages"))

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, Assemble, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}
