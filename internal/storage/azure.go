package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
)

// AzureOptions configures the Azure Blob backend.
type AzureOptions struct {
	Account   string
	Key       string
	Container string
}

type AzureStore struct {
	client *azblob.Client
	cred   *azblob.SharedKeyCredential
	opts   AzureOptions
}

func NewAzureStore(opts AzureOptions) (*AzureStore, error) {
	if opts.Account == "" || opts.Key == "" || opts.Container == "" {
		return nil, fmt.Errorf("azure store requires account, key, and container")
	}
	cred, err := azblob.NewSharedKeyCredential(opts.Account, opts.Key)
	if err != nil {
		return nil, fmt.Errorf("build shared key credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", opts.Account)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	return &AzureStore{client: client, cred: cred, opts: opts}, nil
}

func (a *AzureStore) Name() string {
	return "azure"
}

func (a *AzureStore) Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) (string, error) {
	meta := make(map[string]*string, len(metadata))
	for k, v := range metadata {
		v := v
		meta[k] = &v
	}
	_, err := a.client.UploadBuffer(ctx, a.opts.Container, key, body, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
		Metadata:    meta,
	})
	if err != nil {
		return "", &StorageError{Backend: a.Name(), Op: "upload_buffer", Err: err}
	}
	return a.PublicURL(key), nil
}

func (a *AzureStore) PresignPut(_ context.Context, key string, expiry time.Duration) (*PresignedUpload, error) {
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}
	now := time.Now().UTC()
	values := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		StartTime:     now.Add(-5 * time.Minute),
		ExpiryTime:    now.Add(expiry),
		Permissions:   (&sas.BlobPermissions{Create: true, Write: true}).String(),
		ContainerName: a.opts.Container,
		BlobName:      key,
	}
	params, err := values.SignWithSharedKey(a.cred)
	if err != nil {
		return nil, &StorageError{Backend: a.Name(), Op: "sign_sas", Err: err}
	}
	return &PresignedUpload{
		Key:       key,
		UploadURL: a.PublicURL(key) + "?" + params.Encode(),
		PublicURL: a.PublicURL(key),
		ExpiresIn: expiry,
	}, nil
}

func (a *AzureStore) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s", a.opts.Account, a.opts.Container, key)
}
