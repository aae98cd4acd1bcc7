// Package identity verifies ID tokens issued by an external identity provider.
package identity

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/noah-isme/mindsetu-api/pkg/config"
)

// Identity is the verified subject of an ID token.
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
}

// Verifier validates ID tokens.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

type firebaseAuth interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier checks tokens against a Firebase project.
type FirebaseVerifier struct {
	client firebaseAuth
}

// NewFirebaseVerifier initialises the Firebase Admin SDK.
func NewFirebaseVerifier(ctx context.Context, cfg config.FirebaseConfig) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}
	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

// Verify validates the token signature and expiry and extracts the email claim.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	email, _ := token.Claims["email"].(string)
	verified, _ := token.Claims["email_verified"].(bool)
	if email == "" {
		return nil, fmt.Errorf("verify id token: email claim missing")
	}
	return &Identity{UID: token.UID, Email: strings.ToLower(email), EmailVerified: verified}, nil
}
