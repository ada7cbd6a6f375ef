package host

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRequest struct{ Request }

func (stubRequest) RequestURI() string { return "/checkout/cart" }

func TestRequestContext(t *testing.T) {
	_, ok := RequestFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithRequest(context.Background(), stubRequest{})
	req, ok := RequestFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "/checkout/cart", req.RequestURI())

	_, ok = RequestFromContext(WithRequest(context.Background(), nil))
	assert.False(t, ok)
}

func TestState(t *testing.T) {
	assert.Nil(t, StateFromContext(context.Background()))

	var missing *State
	missing.MarkRedirect()
	assert.False(t, missing.RedirectDetected())

	st := &State{}
	ctx := WithState(context.Background(), st)
	assert.False(t, StateFromContext(ctx).RedirectDetected())

	StateFromContext(ctx).MarkRedirect()
	assert.True(t, st.RedirectDetected())
}
