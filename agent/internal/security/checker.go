package security

import (
	"context"
	"crypto/tls"
	"math"
	"net"
	"net/url"
	"time"
)

// Certificate states reported in CertStatus.Status.
const (
	StatusValid       = "valid"
	StatusExpiring    = "expiring"
	StatusExpired     = "expired"
	StatusUnreachable = "unreachable"
)

// ExpiryWarning is how close to expiry a certificate is reported as expiring.
const ExpiryWarning = 14 * 24 * time.Hour

const dialTimeout = 10 * time.Second

// CertStatus describes the leaf certificate of an endpoint.
type CertStatus struct {
	Endpoint string
	Status   string
	DaysLeft int
	Issuer   string
	NotAfter time.Time
}

// Check dials the TLS endpoint and returns a CertStatus describing the leaf
// certificate.
//
// Returns nil for non-HTTPS endpoints.
// The handshake skips chain verification so expired and self-signed
// certificates can still be reported; it never carries application traffic.
func Check(ctx context.Context, endpoint string) *CertStatus {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme != "https" {
		return nil
	}

	cs := &CertStatus{Endpoint: endpoint}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		// No explicit port in the URL; use the HTTPS default.
		host = net.JoinHostPort(host, "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // inspection only
		},
	}

	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		cs.Status = StatusUnreachable
		return cs
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peerCerts := conn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		cs.Status = StatusUnreachable
		return cs
	}

	leaf := peerCerts[0]
	left := time.Until(leaf.NotAfter)

	cs.NotAfter = leaf.NotAfter.UTC()
	cs.Issuer = leaf.Issuer.CommonName
	cs.DaysLeft = int(math.Floor(left.Hours() / 24))

	switch {
	case left <= 0:
		cs.Status = StatusExpired
	case left <= ExpiryWarning:
		cs.Status = StatusExpiring
	default:
		cs.Status = StatusValid
	}

	return cs
}
