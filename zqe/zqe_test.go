package zqe

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	err := E(Duplicate, "entry %q written twice", "manifest")
	assert.True(t, IsDuplicate(err))
	assert.Equal(t, `duplicate item: entry "manifest" written twice`, err.Error())
	assert.Equal(t, `entry "manifest" written twice`, err.(*Error).Message())

	wrapped := fmt.Errorf("stage 1: %w", E(Decode, errors.New("short read")))
	assert.True(t, IsDecode(wrapped))
	assert.False(t, IsSchemaMismatch(wrapped))
	assert.Equal(t, Other, KindOf(errors.New("plain")))
	assert.Equal(t, "no error", (&Error{}).Error())
}

func TestMissingColumn(t *testing.T) {
	err := ErrMissingColumn("input", "agee", []string{"city", "age"})
	assert.True(t, IsSchemaMismatch(err))
	assert.Equal(t, "schema mismatch: could not find input column 'agee' (did you mean 'age'?)", err.Error())

	err = ErrMissingColumn("input", "zip", []string{"city", "age"})
	assert.Equal(t, "schema mismatch: could not find input column 'zip'", err.Error())
}
