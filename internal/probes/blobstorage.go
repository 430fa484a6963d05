package probes

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"
	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/probe"
)

// BlobStorageProbe validates Azure Blob Storage connectivity: client
// construction, container access, round-trip upload/download, listing,
// and cleanup of the probe's own test blob.
type BlobStorageProbe struct {
	cfg config.BlobStorageConfig
}

func NewBlobStorageProbe(cfg config.BlobStorageConfig) *BlobStorageProbe {
	return &BlobStorageProbe{cfg: cfg}
}

func (p *BlobStorageProbe) ID() string          { return "blobstorage" }
func (p *BlobStorageProbe) DisplayName() string { return "Azure Blob Storage" }

func (p *BlobStorageProbe) IsConfigured() bool {
	return allPresent(map[string]string{
		"AZURE_STORAGE_ACCOUNT_NAME": p.cfg.AccountName,
		"AZURE_STORAGE_ACCOUNT_KEY":  p.cfg.AccountKey,
		"AZURE_STORAGE_CONTAINER":    p.cfg.ContainerName,
	})
}

const blobTestPayload = "preflight-check-payload-of-exactly-sixty-seven-bytes-of-text!!!!!!!"

func (p *BlobStorageProbe) Execute(ctx context.Context, rec *probe.Recorder) (probe.Status, string, string) {
	cred, err := azblob.NewSharedKeyCredential(p.cfg.AccountName, p.cfg.AccountKey)
	if err != nil {
		rec.Record("client_creation", fail("invalid credentials: "+err.Error(),
			"verify AZURE_STORAGE_ACCOUNT_NAME/KEY are correct", "client_error"))
		return probe.StatusError, "could not build client", "check AZURE_STORAGE_ACCOUNT_NAME/KEY"
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", p.cfg.AccountName)
	client, err := service.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		rec.Record("client_creation", fail("could not build client: "+err.Error(),
			"verify AZURE_STORAGE_ACCOUNT_NAME resolves", "client_error"))
		return probe.StatusError, "could not build client", "check the storage account name"
	}
	rec.Record("client_creation", ok("client created", nil))

	container := client.NewContainerClient(p.cfg.ContainerName)
	if _, err := container.GetProperties(ctx, nil); err != nil {
		rec.Record("container_access", fail("could not access container: "+err.Error(),
			"verify AZURE_STORAGE_CONTAINER exists and the key has access", "access_denied"))
		return probe.StatusFailed, "container not accessible", "check the container name and account key permissions"
	}
	rec.Record("container_access", ok("container accessible", map[string]interface{}{"container": p.cfg.ContainerName}))

	blobName := "preflight-check.txt"
	blockBlob := container.NewBlockBlobClient(blobName)

	payload := []byte(blobTestPayload)
	if _, err := blockBlob.UploadBuffer(ctx, payload, nil); err != nil {
		rec.Record("upload", fail("upload failed: "+err.Error(),
			"verify the account key has write access to the container", "upload_failed"))
		return probe.StatusFailed, "upload failed", "check write permissions on the container"
	}
	rec.Record("upload", ok(fmt.Sprintf("uploaded %d bytes", len(payload)), map[string]interface{}{"bytes": len(payload)}))

	downloadResp, err := blockBlob.DownloadStream(ctx, nil)
	if err != nil {
		rec.Record("download+verify", fail("download failed: "+err.Error(),
			"verify read access to the container", "download_failed"))
		return probe.StatusFailed, "download failed", "check read permissions on the container"
	}
	body, err := io.ReadAll(downloadResp.Body)
	downloadResp.Body.Close()
	if err != nil || !bytes.Equal(body, payload) {
		rec.Record("download+verify", fail("downloaded content did not match upload",
			"investigate storage consistency or network corruption", "verify_mismatch"))
		return probe.StatusFailed, "round-trip verification failed", "retry; if persistent, check storage account health"
	}
	rec.Record("download+verify", ok("round-trip verified", nil))

	pager := container.NewListBlobsFlatPager(&azblob.ContainerListBlobsFlatOptions{Prefix: to.Ptr("preflight-check")})
	count := 0
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			rec.Record("list", fail("listing failed: "+err.Error(),
				"verify list permissions on the container", "list_failed"))
			return probe.StatusFailed, "listing failed", "check container list permissions"
		}
		count += len(page.Segment.BlobItems)
	}
	rec.Record("list", ok(fmt.Sprintf("listed %d matching blobs", count), map[string]interface{}{"count": count}))

	if _, err := blockBlob.Delete(ctx, nil); err != nil {
		rec.Record("cleanup", fail("cleanup failed: "+err.Error(),
			"manually remove the test blob "+blobName, "cleanup_failed"))
		return probe.StatusFailed, "cleanup failed", "manually remove the leftover test blob"
	}
	rec.Record("cleanup", ok("test blob removed", nil))

	return probe.StatusPassed, "Azure Blob Storage reachable", ""
}
