package shipper

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/monstersync/monstersync/agent/internal/config"
	"github.com/monstersync/monstersync/pkg/types"
)

// ErrRejected is wrapped by errors for batches the server refused.
var ErrRejected = errors.New("shipper: batch rejected")

// maxResponseSize bounds the response body read from the server.
const maxResponseSize = 64 * 1024

// Shipper sends monster batches to monstersync-server over HTTP.
type Shipper struct {
	endpoint string
	client   *http.Client
	compress bool
}

// New creates a Shipper from the agent config. The HTTP client is built once
// and reused for every batch.
func New(cfg config.AgentConfig) (*Shipper, error) {
	client, err := buildHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Shipper{
		endpoint: strings.TrimRight(cfg.ServerEndpoint, "/"),
		client:   client,
		compress: cfg.Push.Compress,
	}, nil
}

// PushChangedMonsters sends one ordered batch for sessionID.
func (s *Shipper) PushChangedMonsters(ctx context.Context, sessionID string, monsters []types.MonsterModel) error {
	body, err := encodeBody(monsters, s.compress)
	if err != nil {
		return err
	}

	u := s.endpoint + "/api/v1/sessions/" + url.PathEscape(sessionID) + "/monsters"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("shipper: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.compress {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("shipper: post: %w", err)
	}
	defer resp.Body.Close()

	var out types.PushResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out)

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, out.Message)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("shipper: unexpected status %d", resp.StatusCode)
	case decodeErr != nil:
		return fmt.Errorf("shipper: decode response: %w", decodeErr)
	case !out.OK:
		return fmt.Errorf("%w: %s", ErrRejected, out.Message)
	}
	return nil
}

func encodeBody(monsters []types.MonsterModel, compress bool) ([]byte, error) {
	raw, err := json.Marshal(types.PushRequest{Monsters: monsters})
	if err != nil {
		return nil, fmt.Errorf("shipper: encode batch: %w", err)
	}
	if !compress {
		return raw, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("shipper: gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("shipper: gzip: %w", err)
	}
	return buf.Bytes(), nil
}

// authRoundTripper injects the API key header into every outgoing request.
type authRoundTripper struct {
	base   http.RoundTripper
	header string
	key    string
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(t.header, t.key)
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the server auth settings.
func buildHTTPClient(cfg config.AgentConfig) (*http.Client, error) {
	transport := &http.Transport{}

	if cfg.ServerAuth.Mode == "mtls" {
		tlsCfg, err := buildMTLSConfig(cfg.ServerAuth)
		if err != nil {
			return nil, fmt.Errorf("shipper: build mtls config: %w", err)
		}
		transport.TLSClientConfig = tlsCfg
	}

	var rt http.RoundTripper = transport
	if cfg.ServerAuth.Mode == "apikey" && cfg.ServerAuth.KeyEnv != "" {
		rt = &authRoundTripper{
			base:   transport,
			header: cfg.ServerAuth.Header,
			key:    cfg.ServerAuth.Key(),
		}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.Push.SendTimeout,
	}, nil
}

// buildMTLSConfig loads the client certificate and optional CA from the auth config.
func buildMTLSConfig(auth config.AuthConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(auth.CertFile, auth.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load client cert: %w", err)
	}

	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
	}

	if auth.CAFile != "" {
		caPEM, err := os.ReadFile(auth.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("no valid certs in ca file %q", auth.CAFile)
		}
		tlsCfg.RootCAs = pool
	}

	return tlsCfg, nil
}
