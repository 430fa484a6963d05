package probes

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/probe"
)

// S3Probe validates AWS S3 connectivity, bucket listing and access, a
// put/get/delete round trip, and whether bucket versioning is enabled.
type S3Probe struct {
	cfg config.S3Config
}

func NewS3Probe(cfg config.S3Config) *S3Probe {
	return &S3Probe{cfg: cfg}
}

func (p *S3Probe) ID() string          { return "s3" }
func (p *S3Probe) DisplayName() string { return "AWS S3" }

func (p *S3Probe) IsConfigured() bool {
	return allPresent(map[string]string{
		"S3_REGION":            p.cfg.Region,
		"S3_ACCESS_KEY_ID":     p.cfg.AccessKeyID,
		"S3_SECRET_ACCESS_KEY": p.cfg.SecretAccessKey,
		"S3_BUCKET":            p.cfg.Bucket,
	})
}

func (p *S3Probe) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(p.cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(p.cfg.AccessKeyID, p.cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

func runS3FamilyProbe(ctx context.Context, rec *probe.Recorder, client *s3.Client, bucket string, checkVersioning bool) (probe.Status, string, string) {
	if _, err := client.ListBuckets(ctx, &s3.ListBucketsInput{}); err != nil {
		rec.Record("list_buckets", fail("could not list buckets: "+err.Error(),
			"verify the access key has s3:ListAllMyBuckets permission", "access_denied"))
		return probe.StatusFailed, "list buckets failed", "check IAM permissions for s3:ListAllMyBuckets"
	}
	rec.Record("list_buckets", ok("buckets listed", nil))

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		rec.Record("bucket_access", fail("bucket not accessible: "+err.Error(),
			"verify the bucket exists in this region and the key has access", "access_denied"))
		return probe.StatusFailed, "bucket not accessible", "check the bucket name, region, and permissions"
	}
	rec.Record("bucket_access", ok("bucket accessible", map[string]interface{}{"bucket": bucket}))

	key := "preflight-check.txt"
	payload := []byte("preflight s3 round-trip payload")
	if _, err := client.PutObject(ctx, &s3.PutObjectInput{Bucket: aws.String(bucket), Key: aws.String(key), Body: bytes.NewReader(payload)}); err != nil {
		rec.Record("file_operations", fail("put failed: "+err.Error(),
			"verify s3:PutObject permission on the bucket", "put_failed"))
		return probe.StatusFailed, "file operations failed", "check write permissions on the bucket"
	}
	getResp, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		rec.Record("file_operations", fail("get failed: "+err.Error(),
			"verify s3:GetObject permission on the bucket", "get_failed"))
		return probe.StatusFailed, "file operations failed", "check read permissions on the bucket"
	}
	body, _ := io.ReadAll(getResp.Body)
	getResp.Body.Close()
	if !bytes.Equal(body, payload) {
		rec.Record("file_operations", fail("round-trip content mismatch",
			"investigate bucket consistency", "verify_mismatch"))
		return probe.StatusFailed, "file operations failed", "retry; investigate bucket consistency"
	}
	if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}); err != nil {
		rec.Record("file_operations", fail("cleanup delete failed: "+err.Error(),
			"manually remove the test object "+key, "delete_failed"))
		return probe.StatusFailed, "file operations failed", "manually remove the leftover test object"
	}
	rec.Record("file_operations", ok("put/get/delete succeeded", nil))

	if checkVersioning {
		versioning, err := client.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: aws.String(bucket)})
		if err != nil {
			rec.Record("versioning_check", fail("could not read versioning status: "+err.Error(),
				"verify s3:GetBucketVersioning permission", "access_denied"))
			return probe.StatusFailed, "versioning check failed", "check bucket-level permissions"
		}
		rec.Record("versioning_check", ok(fmt.Sprintf("versioning status: %s", versioning.Status),
			map[string]interface{}{"status": string(versioning.Status)}))
	}

	return probe.StatusPassed, "S3 reachable", ""
}

func (p *S3Probe) Execute(ctx context.Context, rec *probe.Recorder) (probe.Status, string, string) {
	client, err := p.client(ctx)
	if err != nil {
		rec.Record("connect", fail("could not build client: "+err.Error(),
			"verify S3 credentials and region are valid", "client_error"))
		return probe.StatusError, "could not build client", "check S3_REGION/ACCESS_KEY_ID/SECRET_ACCESS_KEY"
	}
	rec.Record("connect", ok("client created", map[string]interface{}{"region": p.cfg.Region}))

	return runS3FamilyProbe(ctx, rec, client, p.cfg.Bucket, true)
}
