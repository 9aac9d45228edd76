// Package config manages application configuration for the raid roster.
//
// Configuration is read from environment variables. A .env file (ENV_FILE,
// default ".env") is loaded first when present; variables already set in the
// environment win over the file.
//
//	cfg, err := config.Load()
//	if err != nil { ... }
//	if err := cfg.Validate(); err != nil { ... }
//
// # Configuration Groups
//
//   - ServerConfig: HTTP port, timeouts, log level, metrics, guild allowlist
//   - StorageConfig: snapshot driver, codec and save retries
//   - GatewayConfig: platform relay websocket connection
//   - ReactionSymbols: the markers rendered under a roster message
//   - ConversationConfig: sign-up conversation TTL and sweep interval
//   - RaidsConfig: default account type, role templates and accounts file
//
// # Environment Variables
//
//	SERVER_PORT           - HTTP server port (default: 8080)
//	LOG_LEVEL             - debug, info, warn or error (default: info)
//	ALLOWED_GUILDS        - comma separated guild IDs (default: all)
//	STORAGE_DRIVER        - file, sqlite, postgres, s3, surrealdb or memory
//	SNAPSHOT_CODEC        - json or cbor (default: json)
//	GATEWAY_ENABLED       - connect to the platform relay (default: false)
//	GATEWAY_URL           - relay websocket URL
//	RAID_TEMPLATES_FILE   - YAML file with named role templates
//	ACCOUNTS_FILE         - YAML file with linked platform accounts
package config
