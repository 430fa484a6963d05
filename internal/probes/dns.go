package probes

import (
	"context"
	"fmt"
	"time"

	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/probe"
	"github.com/miekg/dns"
)

// DNSProbe resolves each configured hostname, reporting IPv4/IPv6/CNAME
// records, resolution latency, and which resolver answered.
type DNSProbe struct {
	cfg      config.DNSProbeConfig
	resolver string
}

func NewDNSProbe(cfg config.DNSProbeConfig) *DNSProbe {
	return &DNSProbe{cfg: cfg, resolver: systemResolver()}
}

func (p *DNSProbe) ID() string          { return "dns" }
func (p *DNSProbe) DisplayName() string { return "DNS Resolution" }

func (p *DNSProbe) IsConfigured() bool {
	return len(p.cfg.Hostnames) > 0
}

func (p *DNSProbe) Execute(ctx context.Context, rec *probe.Recorder) (probe.Status, string, string) {
	anyFailed := false
	for _, hostname := range p.cfg.Hostnames {
		record, err := ResolveHostname(ctx, p.resolver, hostname)
		if err != nil {
			anyFailed = true
			rec.Record(hostname, fail("resolution failed: "+err.Error(),
				"verify "+hostname+" exists and the configured DNS resolver is reachable", "resolve_failed"))
			continue
		}
		rec.Record(hostname, ok("resolved", map[string]interface{}{
			"ipv4_addresses": record.IPv4,
			"ipv6_addresses": record.IPv6,
			"cname":          record.CNAME,
			"latency_ms":     record.LatencyMS,
			"resolver":       record.Resolver,
		}))
	}
	if anyFailed {
		return probe.StatusFailed, "one or more hostnames failed to resolve", "check DNS configuration for the failing hostnames"
	}
	return probe.StatusPassed, fmt.Sprintf("resolved %d hostnames", len(p.cfg.Hostnames)), ""
}

// DNSRecord is the ad-hoc lookup result shape shared by the dns probe and
// the /api/tests/dns/resolve endpoint.
type DNSRecord struct {
	IPv4      []string
	IPv6      []string
	CNAME     string
	LatencyMS float64
	Resolver  string
}

func systemResolver() string {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(cfg.Servers) == 0 {
		return "8.8.8.8:53"
	}
	return cfg.Servers[0] + ":" + cfg.Port
}

// ResolveHostname performs an A/AAAA/CNAME lookup against the given
// resolver address, used by both the dns probe and the ad-hoc endpoint.
func ResolveHostname(ctx context.Context, resolver, hostname string) (DNSRecord, error) {
	client := new(dns.Client)
	client.Timeout = 5 * time.Second

	fqdn := dns.Fqdn(hostname)
	record := DNSRecord{Resolver: resolver}

	start := time.Now()
	aMsg := new(dns.Msg)
	aMsg.SetQuestion(fqdn, dns.TypeA)
	aResp, _, err := client.ExchangeContext(ctx, aMsg, resolver)
	record.LatencyMS = durationMS(time.Since(start))
	if err != nil {
		return record, err
	}
	for _, ans := range aResp.Answer {
		switch rr := ans.(type) {
		case *dns.A:
			record.IPv4 = append(record.IPv4, rr.A.String())
		case *dns.CNAME:
			record.CNAME = rr.Target
		}
	}

	aaaaMsg := new(dns.Msg)
	aaaaMsg.SetQuestion(fqdn, dns.TypeAAAA)
	if aaaaResp, _, err := client.ExchangeContext(ctx, aaaaMsg, resolver); err == nil {
		for _, ans := range aaaaResp.Answer {
			if rr, ok := ans.(*dns.AAAA); ok {
				record.IPv6 = append(record.IPv6, rr.AAAA.String())
			}
		}
	}

	if len(record.IPv4) == 0 && len(record.IPv6) == 0 {
		return record, fmt.Errorf("no A or AAAA records found for %s", hostname)
	}
	return record, nil
}
