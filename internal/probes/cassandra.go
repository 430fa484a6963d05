package probes

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"
	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/probe"
)

// CassandraProbe validates connectivity to a Cassandra cluster, reports
// cluster health, lists keyspaces, runs a sample query, and checks
// replication settings.
type CassandraProbe struct {
	cfg config.CassandraConfig
}

func NewCassandraProbe(cfg config.CassandraConfig) *CassandraProbe {
	return &CassandraProbe{cfg: cfg}
}

func (p *CassandraProbe) ID() string          { return "cassandra" }
func (p *CassandraProbe) DisplayName() string { return "Cassandra" }

func (p *CassandraProbe) IsConfigured() bool {
	return len(p.cfg.Hosts) > 0 && p.cfg.Keyspace != ""
}

func (p *CassandraProbe) Execute(ctx context.Context, rec *probe.Recorder) (probe.Status, string, string) {
	cluster := gocql.NewCluster(p.cfg.Hosts...)
	cluster.Keyspace = p.cfg.Keyspace
	if p.cfg.User != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{Username: p.cfg.User, Password: p.cfg.Password}
	}
	cluster.Context = ctx

	session, err := cluster.CreateSession()
	if err != nil {
		rec.Record("connect", fail("could not connect: "+err.Error(),
			"verify CASSANDRA_HOSTS are reachable and credentials are correct", "connect_failed"))
		return probe.StatusFailed, "connection failed", "check network access and credentials for the Cassandra cluster"
	}
	defer session.Close()
	rec.Record("connect", ok("connected", map[string]interface{}{"hosts": p.cfg.Hosts}))

	var releaseVersion string
	if err := session.Query(`SELECT release_version FROM system.local`).WithContext(ctx).Scan(&releaseVersion); err != nil {
		rec.Record("cluster_health", fail("could not read cluster health: "+err.Error(),
			"verify the user can read system.local", "query_failed"))
		return probe.StatusFailed, "cluster health check failed", "check Cassandra connectivity"
	}
	rec.Record("cluster_health", ok("cluster healthy", map[string]interface{}{"release_version": releaseVersion}))

	var keyspaceName string
	iter := session.Query(`SELECT keyspace_name FROM system_schema.keyspaces`).WithContext(ctx).Iter()
	keyspaces := map[string]interface{}{}
	for iter.Scan(&keyspaceName) {
		keyspaces[keyspaceName] = true
	}
	if err := iter.Close(); err != nil {
		rec.Record("list_keyspaces", fail("could not list keyspaces: "+err.Error(),
			"verify the user has SELECT on system_schema.keyspaces", "query_failed"))
		return probe.StatusFailed, "failed to list keyspaces", "check Cassandra permissions"
	}
	rec.Record("list_keyspaces", ok(fmt.Sprintf("found %d keyspaces", len(keyspaces)), keyspaces))

	if err := session.Query(`SELECT table_name FROM system_schema.tables WHERE keyspace_name = ?`, p.cfg.Keyspace).
		WithContext(ctx).Exec(); err != nil {
		rec.Record("query_execution", fail("sample query failed: "+err.Error(),
			"verify the keyspace and table layout are reachable", "query_failed"))
		return probe.StatusFailed, "query execution failed", "check Cassandra connectivity"
	}
	rec.Record("query_execution", ok("sample query succeeded", nil))

	replication := map[string]string{}
	_ = session.Query(`SELECT replication FROM system_schema.keyspaces WHERE keyspace_name = ?`, p.cfg.Keyspace).
		WithContext(ctx).Scan(&replication)
	rec.Record("replication", ok("replication settings read", map[string]interface{}{
		"keyspace": p.cfg.Keyspace, "replication": replication,
	}))

	return probe.StatusPassed, "Cassandra reachable", ""
}
