// Package config handles configuration loading for gatewarden.
//
// Configuration is loaded from YAML files with ${VAR} environment variable
// expansion and Go duration parsing. Example:
//
//	server:
//	  http_addr: "127.0.0.1:8787"
//	auth:
//	  secret: "${GATEWARDEN_SECRET}"
//	  rotating_seed: "${GATEWARDEN_ROTATING_SEED}"
//	  challenge_ttl: "5m"
//	  rotation_period: "24h"
//	  demo_mode: false
//	sensitive_actions:
//	  - delete_database
//	  - execute_shell
//	audit:
//	  backend: "memory"   # memory or sqlite
//	  path: ""            # required for sqlite
//	logging:
//	  level: "info"       # debug, info, warn, error
//	  format: "text"      # text, json
//
// The long-term secret and the rotating-code seed are secret material: a
// non-demo instance refuses to start without explicit values for both, and
// the built-in placeholder secret is only accepted when demo_mode is set.
package config
