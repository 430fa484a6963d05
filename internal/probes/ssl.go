package probes

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/probe"
)

// SSLProbe dials each configured URL's TLS endpoint and reports protocol
// version, cipher suite, certificate chain length, SAN match, and days
// until expiry.
type SSLProbe struct {
	cfg config.SSLProbeConfig
}

func NewSSLProbe(cfg config.SSLProbeConfig) *SSLProbe {
	return &SSLProbe{cfg: cfg}
}

func (p *SSLProbe) ID() string          { return "ssl" }
func (p *SSLProbe) DisplayName() string { return "TLS Endpoints" }

func (p *SSLProbe) IsConfigured() bool {
	return len(p.cfg.URLs) > 0
}

func (p *SSLProbe) Execute(ctx context.Context, rec *probe.Recorder) (probe.Status, string, string) {
	anyFailed := false
	for _, rawURL := range p.cfg.URLs {
		record, err := CheckTLS(ctx, rawURL)
		if err != nil {
			anyFailed = true
			rec.Record(rawURL, fail("TLS check failed: "+err.Error(),
				"verify "+rawURL+" is reachable and serves a valid TLS certificate", "tls_check_failed"))
			continue
		}
		rec.Record(rawURL, ok("TLS handshake succeeded", map[string]interface{}{
			"tls_version":    record.Version,
			"cipher_suite":   record.CipherSuite,
			"chain_length":   record.ChainLength,
			"san_match":      record.SANMatch,
			"days_to_expiry": record.DaysToExpiry,
		}))
	}
	if anyFailed {
		return probe.StatusFailed, "one or more TLS endpoints failed", "check certificates and reachability for the failing endpoints"
	}
	return probe.StatusPassed, fmt.Sprintf("checked %d TLS endpoints", len(p.cfg.URLs)), ""
}

// TLSRecord is the ad-hoc TLS check result shape shared by the ssl probe
// and the /api/tests/ssl/check endpoint.
type TLSRecord struct {
	Version      string
	CipherSuite  string
	ChainLength  int
	SANMatch     bool
	DaysToExpiry int
}

// CheckTLS dials rawURL (scheme+host[:port], or a bare host) and inspects
// the negotiated TLS connection state.
func CheckTLS(ctx context.Context, rawURL string) (TLSRecord, error) {
	host, port, err := hostPortFromURL(rawURL)
	if err != nil {
		return TLSRecord{}, err
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := tls.DialWithDialer(dialer, "tcp", net.JoinHostPort(host, port), &tls.Config{ServerName: host})
	if err != nil {
		return TLSRecord{}, err
	}
	defer conn.Close()

	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return TLSRecord{}, fmt.Errorf("no peer certificates presented")
	}
	leaf := state.PeerCertificates[0]

	sanMatch := false
	for _, name := range leaf.DNSNames {
		if name == host {
			sanMatch = true
			break
		}
	}
	if err := leaf.VerifyHostname(host); err == nil {
		sanMatch = true
	}

	return TLSRecord{
		Version:      tlsVersionName(state.Version),
		CipherSuite:  tls.CipherSuiteName(state.CipherSuite),
		ChainLength:  len(state.PeerCertificates),
		SANMatch:     sanMatch,
		DaysToExpiry: int(time.Until(leaf.NotAfter).Hours() / 24),
	}, nil
}

func hostPortFromURL(raw string) (host, port string, err error) {
	u, parseErr := url.Parse(raw)
	if parseErr == nil && u.Host != "" {
		host = u.Hostname()
		port = u.Port()
	} else {
		host = raw
	}
	if port == "" {
		port = "443"
	}
	if host == "" {
		return "", "", fmt.Errorf("could not determine host from %q", raw)
	}
	return host, port, nil
}

func tlsVersionName(v uint16) string {
	switch v {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return "unknown"
	}
}
