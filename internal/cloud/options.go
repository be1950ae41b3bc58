package cloud

import (
	"os"
	"strings"
)

// Options holds storage credentials and endpoints. Empty fields fall back
// to the SDK defaults (the AWS credential chain, the public Azure endpoint).
type Options struct {
	// S3Region overrides the region from the AWS config.
	S3Region string
	// S3Endpoint points at an S3-compatible server and turns on path-style addressing.
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3SessionToken string

	// AzureConnectionString takes precedence over account and SAS token.
	AzureConnectionString string
	AzureAccount          string
	AzureSASToken         string
	// AzureEndpoint overrides https://<account>.blob.core.windows.net.
	AzureEndpoint string
}

// OptionsFromEnv reads Options from the environment. A nil lookup reads
// the process environment.
//
//	MEDIACENTER_S3_REGION, MEDIACENTER_S3_ENDPOINT,
//	MEDIACENTER_S3_ACCESS_KEY, MEDIACENTER_S3_SECRET_KEY, MEDIACENTER_S3_SESSION_TOKEN,
//	AZURE_STORAGE_CONNECTION_STRING, AZURE_STORAGE_ACCOUNT,
//	AZURE_STORAGE_SAS_TOKEN, MEDIACENTER_AZURE_ENDPOINT
func OptionsFromEnv(lookup func(string) (string, bool)) Options {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(k string) string {
		v, _ := lookup(k)
		return strings.TrimSpace(v)
	}
	return Options{
		S3Region:              get("MEDIACENTER_S3_REGION"),
		S3Endpoint:            get("MEDIACENTER_S3_ENDPOINT"),
		S3AccessKey:           get("MEDIACENTER_S3_ACCESS_KEY"),
		S3SecretKey:           get("MEDIACENTER_S3_SECRET_KEY"),
		S3SessionToken:        get("MEDIACENTER_S3_SESSION_TOKEN"),
		AzureConnectionString: get("AZURE_STORAGE_CONNECTION_STRING"),
		AzureAccount:          get("AZURE_STORAGE_ACCOUNT"),
		AzureSASToken:         strings.TrimPrefix(get("AZURE_STORAGE_SAS_TOKEN"), "?"),
		AzureEndpoint:         get("MEDIACENTER_AZURE_ENDPOINT"),
	}
}
