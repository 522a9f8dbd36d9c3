package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
)

// TelephonyProber checks the contact-center platform with an authenticated
// fetch of its administrative system-info resource.
type TelephonyProber struct{}

func (TelephonyProber) Probe(ctx context.Context, values map[string]any) error {
	host := getString(values, "host")
	if host == "" {
		return errors.New("host is not set")
	}

	scheme := "http"
	if getBool(values, "use_tls") {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s/adminapi/system", scheme, net.JoinHostPort(host, strconv.Itoa(getInt(values, "port"))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(getString(values, "username"), getString(values, "password"))
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: platform returned status %d", ErrCredentialRejected, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("platform returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return nil
}
