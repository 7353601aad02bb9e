// Command kvault backs up and restores Keycloak realm configuration.
//
// Subcommands: backup, restore, plan, list, info, serve (metrics/health
// HTTP server). Configuration is loaded from --config (default ./config)
// per internal/config; KEYCLOAK_*, BACKUP_RESTORE_CONFIG_PATH, and
// BACKUP_RESTORE_SERVER_PORT environment variables override it.
package main
