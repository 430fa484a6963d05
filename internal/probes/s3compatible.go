package probes

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/probe"
)

// S3CompatibleProbe validates connectivity to an S3-compatible endpoint
// (MinIO, Ceph RGW, etc.) using the same connect/list/access/file-ops
// sub-test sequence as the s3 probe, against a path-style client pointed
// at a custom endpoint instead of AWS.
type S3CompatibleProbe struct {
	cfg config.S3CompatibleConfig
}

func NewS3CompatibleProbe(cfg config.S3CompatibleConfig) *S3CompatibleProbe {
	return &S3CompatibleProbe{cfg: cfg}
}

func (p *S3CompatibleProbe) ID() string          { return "s3compatible" }
func (p *S3CompatibleProbe) DisplayName() string { return "S3-Compatible Storage" }

func (p *S3CompatibleProbe) IsConfigured() bool {
	return allPresent(map[string]string{
		"S3COMPATIBLE_ENDPOINT":         p.cfg.Endpoint,
		"S3COMPATIBLE_ACCESS_KEY_ID":     p.cfg.AccessKeyID,
		"S3COMPATIBLE_SECRET_ACCESS_KEY": p.cfg.SecretAccessKey,
		"S3COMPATIBLE_BUCKET":            p.cfg.Bucket,
	})
}

func (p *S3CompatibleProbe) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(p.cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(p.cfg.AccessKeyID, p.cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = &p.cfg.Endpoint
		o.UsePathStyle = true
	}), nil
}

func (p *S3CompatibleProbe) Execute(ctx context.Context, rec *probe.Recorder) (probe.Status, string, string) {
	client, err := p.client(ctx)
	if err != nil {
		rec.Record("connect", fail("could not build client: "+err.Error(),
			"verify S3COMPATIBLE_ENDPOINT and credentials are valid", "client_error"))
		return probe.StatusError, "could not build client", "check S3COMPATIBLE_ENDPOINT/ACCESS_KEY_ID/SECRET_ACCESS_KEY"
	}
	rec.Record("connect", ok("client created", map[string]interface{}{"endpoint": p.cfg.Endpoint}))

	status, message, remediation := runS3FamilyProbe(ctx, rec, client, p.cfg.Bucket, false)
	return status, message, remediation
}
