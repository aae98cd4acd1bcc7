package identity

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFirebaseAuth struct {
	token *auth.Token
	err   error
}

func (s stubFirebaseAuth) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	return s.token, s.err
}

func TestFirebaseVerifierExtractsEmail(t *testing.T) {
	v := &FirebaseVerifier{client: stubFirebaseAuth{token: &auth.Token{UID: "uid-1", Claims: map[string]interface{}{"email": "Bob@Greenwood.edu", "email_verified": true}}}}

	id, err := v.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", id.UID)
	assert.Equal(t, "bob@greenwood.edu", id.Email)
	assert.True(t, id.EmailVerified)
}

func TestFirebaseVerifierRejectsMissingEmail(t *testing.T) {
	v := &FirebaseVerifier{client: stubFirebaseAuth{token: &auth.Token{UID: "uid-1", Claims: map[string]interface{}{}}}}
	_, err := v.Verify(context.Background(), "tok")
	assert.Error(t, err)
}

func TestFirebaseVerifierPropagatesErrors(t *testing.T) {
	v := &FirebaseVerifier{client: stubFirebaseAuth{err: errors.New("expired")}}
	_, err := v.Verify(context.Background(), "tok")
	assert.ErrorContains(t, err, "expired")
}
