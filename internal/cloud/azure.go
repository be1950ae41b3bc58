package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureSink writes blobs to one Azure container.
type AzureSink struct {
	client    *azblob.Client
	container string
}

// NewAzureSink creates a sink for container. Credentials come from a
// connection string or from an account name and SAS token.
func NewAzureSink(container string, opts Options, httpClient *nethttp.Client) (*AzureSink, error) {
	clientOpts := &azblob.ClientOptions{}
	if httpClient != nil {
		clientOpts.ClientOptions = azcore.ClientOptions{Transport: httpClient}
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case opts.AzureConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(opts.AzureConnectionString, clientOpts)
	case opts.AzureAccount != "" || opts.AzureEndpoint != "":
		var serviceURL string
		serviceURL, err = azureServiceURL(opts)
		if err == nil {
			client, err = azblob.NewClientWithNoCredential(serviceURL, clientOpts)
		}
	default:
		err = errors.New("set AZURE_STORAGE_CONNECTION_STRING or AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_SAS_TOKEN")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}
	return &AzureSink{client: client, container: container}, nil
}

// azureServiceURL builds the service URL with the SAS token as query.
func azureServiceURL(opts Options) (string, error) {
	base := strings.TrimRight(opts.AzureEndpoint, "/")
	if base == "" {
		if opts.AzureAccount == "" {
			return "", errors.New("azure storage account is not set")
		}
		base = fmt.Sprintf("https://%s.blob.core.windows.net", opts.AzureAccount)
	}
	if opts.AzureSASToken == "" {
		return base + "/", nil
	}
	return base + "/?" + opts.AzureSASToken, nil
}

// Put uploads body as a block blob in staged chunks.
func (a *AzureSink) Put(ctx context.Context, key string, body io.ReadSeeker, size int64) error {
	_, err := a.client.UploadStream(ctx, a.container, key, body, nil)
	if err != nil {
		return fmt.Errorf("azure put %s/%s: %w", a.container, key, err)
	}
	return nil
}

// URL returns azblob://container/key.
func (a *AzureSink) URL(key string) string {
	return "azblob://" + a.container + "/" + key
}
