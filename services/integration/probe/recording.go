package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// MediaRecordingProber checks the call-recording platform by fetching its
// status resource with the stored API token.
type MediaRecordingProber struct{}

func (MediaRecordingProber) Probe(ctx context.Context, values map[string]any) error {
	apiURL := strings.TrimSuffix(getString(values, "api_url"), "/")
	if apiURL == "" {
		return errors.New("api_url is not set")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"/api/v1/status", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+getString(values, "api_token"))

	client := http.DefaultClient
	if !getBool(values, "verify_tls") {
		client = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: platform returned status %d", ErrCredentialRejected, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return nil
}
