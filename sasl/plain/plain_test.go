package plain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainSessionProducesExpectedFraming(t *testing.T) {
	a := Auth{User: "alice", Password: "s3cret"}
	sess, err := a.Session(context.Background())
	require.NoError(t, err)

	msg, done, err := sess.Challenge(nil)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "\x00alice\x00s3cret", string(msg))
}

func TestPlainSessionSecondChallengeIsNoOp(t *testing.T) {
	a := Auth{User: "bob", Password: "pw"}
	sess, _ := a.Session(context.Background())
	_, _, _ = sess.Challenge(nil)

	msg, done, err := sess.Challenge([]byte("anything"))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Nil(t, msg)
}
