package sessions_test

import (
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"

	sessions "github.com/pulsefit/go-sessions"
)

func TestIsRecordNotFound(t *testing.T) {
	assert.False(t, sessions.IsRecordNotFound(nil))
	assert.False(t, sessions.IsRecordNotFound(fmt.Errorf("connection refused")))

	assert.True(t, sessions.IsRecordNotFound(goerrors.New("gone", goerrors.CategoryNotFound)))
	assert.True(t, sessions.IsRecordNotFound(repository.NewRecordNotFound()),
		"repository misses carry their own category and must still count as not found")
}

func TestIsStoreUnavailable(t *testing.T) {
	assert.False(t, sessions.IsStoreUnavailable(nil))
	assert.False(t, sessions.IsStoreUnavailable(sessions.ErrAccountNotFound))
	assert.False(t, sessions.IsStoreUnavailable(repository.NewRecordNotFound()))

	assert.True(t, sessions.IsStoreUnavailable(
		goerrors.Wrap(fmt.Errorf("timeout"), goerrors.CategoryInternal, "store failure"),
	))
}
