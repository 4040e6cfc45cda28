package sim

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorPredicates(t *testing.T) {
	cfg := NewConfigError("bad module %q", "x")
	dom := NewDomainError("PhotoPion", "negative energy")
	inv := &InvariantError{Message: "processing inactive candidate"}

	assert.True(t, IsConfigError(cfg))
	assert.False(t, IsConfigError(dom))

	assert.True(t, IsDomainError(dom))
	assert.False(t, IsDomainError(inv))

	assert.True(t, IsInvariantError(inv))
	assert.False(t, IsInvariantError(cfg))
}

func TestErrorPredicates_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("build engine: %w", NewConfigError("no modules"))
	assert.True(t, IsConfigError(wrapped))

	assert.False(t, IsConfigError(errors.New("plain")))
}

func TestConfigError_Message(t *testing.T) {
	err := NewConfigError("max steps must be positive, got %d", -1)
	assert.Contains(t, err.Error(), string(CodeConfig))
	assert.Contains(t, err.Error(), "got -1")
}

func TestDomainError_IncludesModuleAndCause(t *testing.T) {
	cause := errors.New("nan energy")
	err := &DomainError{Module: "Decay", Lineage: "c000004", Message: "bad state", Err: cause}
	assert.Contains(t, err.Error(), string(CodeDomain))
	assert.Contains(t, err.Error(), "Decay")
	assert.ErrorIs(t, err, cause)
}

func TestInvariantError_IncludesLineage(t *testing.T) {
	err := &InvariantError{Message: "negative step", Lineage: "c000009"}
	assert.Contains(t, err.Error(), string(CodeInvariant))
	assert.Contains(t, err.Error(), "c000009")
}
