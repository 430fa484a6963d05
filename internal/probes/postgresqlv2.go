package probes

import (
	"context"
	"fmt"

	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/probe"
	"github.com/jackc/pgx/v5"
)

// PostgreSQLV2Probe validates connectivity to a PostgreSQL server, lists
// databases with their sizes, and lists installed extensions.
type PostgreSQLV2Probe struct {
	cfg config.PostgreSQLConfig
}

func NewPostgreSQLV2Probe(cfg config.PostgreSQLConfig) *PostgreSQLV2Probe {
	return &PostgreSQLV2Probe{cfg: cfg}
}

func (p *PostgreSQLV2Probe) ID() string          { return "postgresqlv2" }
func (p *PostgreSQLV2Probe) DisplayName() string { return "PostgreSQL" }

func (p *PostgreSQLV2Probe) IsConfigured() bool {
	return allPresent(map[string]string{
		"POSTGRESQL_HOST":     p.cfg.Host,
		"POSTGRESQL_USER":     p.cfg.User,
		"POSTGRESQL_PASSWORD": p.cfg.Password,
		"POSTGRESQL_DATABASE": p.cfg.Database,
	})
}

func (p *PostgreSQLV2Probe) connString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.cfg.User, p.cfg.Password, p.cfg.Host, p.cfg.Port, p.cfg.Database, p.cfg.SSLMode)
}

func (p *PostgreSQLV2Probe) Execute(ctx context.Context, rec *probe.Recorder) (probe.Status, string, string) {
	conn, err := pgx.Connect(ctx, p.connString())
	if err != nil {
		rec.Record("connect", fail("could not connect: "+err.Error(),
			"verify POSTGRESQL_HOST/PORT is reachable and credentials are correct", "connect_failed"))
		return probe.StatusFailed, "connection failed", "check network access and credentials for the PostgreSQL server"
	}
	defer conn.Close(ctx)

	rec.Record("connect", ok("connected", map[string]interface{}{"host": p.cfg.Host}))

	rows, err := conn.Query(ctx, `SELECT datname, pg_database_size(datname) FROM pg_database WHERE datistemplate = false`)
	if err != nil {
		rec.Record("list_databases", fail("could not list databases: "+err.Error(),
			"grant the configured user CONNECT on pg_database", "query_failed"))
		return probe.StatusFailed, "failed to list databases", "check the database user's permissions"
	}
	dbs := map[string]interface{}{}
	for rows.Next() {
		var name string
		var size int64
		if err := rows.Scan(&name, &size); err == nil {
			dbs[name] = size
		}
	}
	rows.Close()
	rec.Record("list_databases", ok(fmt.Sprintf("found %d databases", len(dbs)), dbs))

	extRows, err := conn.Query(ctx, `SELECT extname, extversion FROM pg_extension`)
	if err != nil {
		rec.Record("list_extensions", fail("could not list extensions: "+err.Error(),
			"verify the connected role can read pg_extension", "query_failed"))
		return probe.StatusFailed, "failed to list extensions", "check the database user's permissions"
	}
	exts := map[string]interface{}{}
	for extRows.Next() {
		var name, version string
		if err := extRows.Scan(&name, &version); err == nil {
			exts[name] = version
		}
	}
	extRows.Close()
	rec.Record("list_extensions", ok(fmt.Sprintf("found %d extensions", len(exts)), exts))

	return probe.StatusPassed, "PostgreSQL reachable", ""
}
