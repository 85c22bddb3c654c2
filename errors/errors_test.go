package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfThroughWrapping(t *testing.T) {
	base := E(Persistence, "insert enrollment", fmt.Errorf("connection reset"))
	wrapped := fmt.Errorf("commit: %w", base)

	assert.Equal(t, Persistence, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, Persistence))
	assert.False(t, IsKind(wrapped, NotFound))
	assert.Equal(t, Other, KindOf(fmt.Errorf("plain")))
	assert.False(t, IsKind(nil, Other))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := E(UpstreamAuth, "token request failed", fmt.Errorf("status 401"))

	assert.Contains(t, err.Error(), `"kind":"upstream auth error"`)
	assert.Contains(t, err.Error(), `"message":"token request failed"`)
	assert.Contains(t, err.Error(), `"cause":"status 401"`)
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := E(Internal, cause)

	assert.True(t, Is(err, cause))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "course c1 not found", MessageOf(fmt.Errorf("get: %w", E(NotFound, "course c1 not found"))))
	assert.Equal(t, "plain", MessageOf(fmt.Errorf("plain")))
	assert.Equal(t, "", MessageOf(nil))
}
