package probe

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// IdentityProber checks the identity provider: OIDC discovery must answer
// and the configured client credentials must mint a token.
type IdentityProber struct{}

func (IdentityProber) Probe(ctx context.Context, values map[string]any) error {
	issuerURL := getString(values, "issuer_url")
	if issuerURL == "" {
		return errors.New("issuer_url is not set")
	}

	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return fmt.Errorf("oidc discovery: %w", err)
	}

	cc := clientcredentials.Config{
		ClientID:     getString(values, "client_id"),
		ClientSecret: getString(values, "client_secret"),
		TokenURL:     provider.Endpoint().TokenURL,
	}
	if _, err := cc.Token(ctx); err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && (retrieveErr.Response.StatusCode == 400 || retrieveErr.Response.StatusCode == 401) {
			return fmt.Errorf("%w: token endpoint refused client credentials", ErrCredentialRejected)
		}
		return fmt.Errorf("token endpoint: %w", err)
	}

	return nil
}
