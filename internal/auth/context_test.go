package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithIdentity_RoundTrip(t *testing.T) {
	id := &Identity{SessionID: "s1", Token: "tok", TenantID: "t1", Role: "owner"}
	ctx := WithIdentity(context.Background(), id)

	assert.Same(t, id, FromContext(ctx))
	assert.Same(t, id, MustFromContext(ctx))
	assert.True(t, id.IsOwner())
}

func TestFromContext_Missing(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	assert.Panics(t, func() { MustFromContext(context.Background()) })
}

func TestIdentity_IsOwner(t *testing.T) {
	assert.True(t, (&Identity{Role: "admin"}).IsOwner())
	assert.True(t, (&Identity{Role: "company_admin"}).IsOwner())
	assert.False(t, (&Identity{Role: "member"}).IsOwner())
	assert.False(t, (&Identity{}).IsOwner())
}
