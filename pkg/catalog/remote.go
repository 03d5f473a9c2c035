package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// maxDrainBytes bounds how much of a response body is read before the
// connection is given up instead of reused.
const maxDrainBytes = 64 << 10

// Remote queries an HTTP skill/tool registry.
//
// Lookups issue GET {base}/skills/{name} or GET {base}/tools/{name}. A 200
// response means the name is registered, a 404 means it is not, and any other
// outcome (transport error, timeout, 5xx) is reported as UnavailableError.
type Remote struct {
	baseURL string
	client  *http.Client
}

// NewRemote creates a remote catalog client.
func NewRemote(baseURL string, timeout time.Duration) (*Remote, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid catalog url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// SkillExists implements Validator.
func (r *Remote) SkillExists(ctx context.Context, name string) (bool, error) {
	return r.lookup(ctx, KindSkill, "skills", name)
}

// ToolExists implements Validator.
func (r *Remote) ToolExists(ctx context.Context, name string) (bool, error) {
	return r.lookup(ctx, KindTool, "tools", name)
}

// Check probes the registry root. Any HTTP answer below 500 counts as reachable.
func (r *Remote) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/", nil)
	if err != nil {
		return NewUnavailableError("remote", "", "", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return NewUnavailableError("remote", "", "", err)
	}
	defer resp.Body.Close()
	drain(resp.Body)
	if resp.StatusCode >= 500 {
		return NewUnavailableError("remote", "", "", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return nil
}

func (r *Remote) lookup(ctx context.Context, kind Kind, collection, name string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, nil
	}
	endpoint := fmt.Sprintf("%s/%s/%s", r.baseURL, collection, url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, NewUnavailableError("remote", kind, name, err)
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := r.client.Do(req)
	if err != nil {
		return false, NewUnavailableError("remote", kind, name, err)
	}
	defer resp.Body.Close()
	drain(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, NewUnavailableError("remote", kind, name,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

// drain discards what is left of a small response body so the connection can
// be reused.
func drain(body io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxDrainBytes))
}
