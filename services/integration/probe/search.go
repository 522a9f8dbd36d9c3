package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// SearchIndexProber checks the search engine with a cluster health call. A
// yellow cluster answers but is reported degraded.
type SearchIndexProber struct{}

func (SearchIndexProber) Probe(ctx context.Context, values map[string]any) error {
	address := getString(values, "address")
	if address == "" {
		return errors.New("address is not set")
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{address},
		Username:  getString(values, "username"),
		Password:  getString(values, "password"),
	})
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}

	health := opensearchapi.ClusterHealthRequest{}
	resp, err := health.Do(ctx, client)
	if err != nil {
		return fmt.Errorf("cluster health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: cluster returned status %d", ErrCredentialRejected, resp.StatusCode)
	}
	if resp.IsError() {
		return fmt.Errorf("cluster returned status %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode cluster health: %w", err)
	}

	switch body.Status {
	case "green":
		return nil
	case "yellow":
		return fmt.Errorf("%w: cluster status yellow", ErrDegraded)
	default:
		return fmt.Errorf("cluster status %s", body.Status)
	}
}
