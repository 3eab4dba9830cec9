package config

import (
	"strings"
)

// envTransform turns INDEXER_WS_PING_INTERVAL into wsPingInterval-shaped
// keys so it overlays the same koanf tree as the TOML file.
func envTransform(key, value string) (string, interface{}) {
	parts := strings.Split(strings.ToLower(strings.TrimPrefix(key, "INDEXER_")), "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, ""), value
}
