package instance

import (
	"os"
	"strings"
)

// ID identifies the running process in logs. The first non-empty of
// STOCKLEDGER_INSTANCE_ID, DYNO and HOSTNAME wins.
func ID() string {
	for _, key := range []string{"STOCKLEDGER_INSTANCE_ID", "DYNO", "HOSTNAME"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return "local"
}
