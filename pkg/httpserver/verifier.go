package httpserver

import (
	"context"
	"fmt"

	"github.com/DmitryPogrebniuk/qms-sub001/pkg/api"
	"github.com/coreos/go-oidc/v3/oidc"
)

// OidcVerifier verifies bearer tokens against the platform's identity
// provider and decodes the standard claim set out of them.
type OidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOidcVerifier(ctx context.Context, issuerURL, clientID string) (*OidcVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}

	return &OidcVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (v *OidcVerifier) Verify(ctx context.Context, rawToken string) (*api.Claims, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	var claims api.Claims
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}

	return &claims, nil
}
