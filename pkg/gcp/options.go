package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/angelmondragon/stockledger/pkg/config"
)

// ClientOptions returns the credential options shared by the Pub/Sub and
// BigQuery clients. Inline JSON wins over a credentials file; with neither the
// clients fall back to application default credentials.
func ClientOptions(gcp config.GCPConfig) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	return opts
}
