package instance

import (
	"os"
	"strings"
)

// ID identifies the running process in logs. It prefers HATCHERY_INSTANCE_ID,
// then the platform dyno name, then the hostname.
func ID(kind string) string {
	for _, key := range []string{"HATCHERY_INSTANCE_ID", "DYNO"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	if kind == "" {
		kind = "hatchery"
	}
	return kind + "-0"
}
