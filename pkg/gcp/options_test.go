package gcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/stockledger/pkg/config"
)

func TestClientOptions(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.GCPConfig
		want int
	}{
		{"application default", config.GCPConfig{ProjectID: "ledger-prod"}, 0},
		{"blank values ignored", config.GCPConfig{CredentialsJSON: "  ", ApplicationCredentials: "\t"}, 0},
		{"credentials file", config.GCPConfig{ApplicationCredentials: "/var/secrets/sa.json"}, 1},
		{"inline json wins over file", config.GCPConfig{
			CredentialsJSON:        `{"type":"service_account"}`,
			ApplicationCredentials: "/var/secrets/sa.json",
		}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, ClientOptions(tc.cfg), tc.want)
		})
	}
}
