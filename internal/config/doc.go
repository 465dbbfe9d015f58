// Package config handles configuration loading for keyward.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// Unset security parameters fall back to account.DefaultParams.
//
// # Configuration File
//
// Default location (first match):
//
//  1. Path from KEYWARD_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/keyward/config.yaml
//  3. ~/.config/keyward/config.yaml
//
// "keyward init" writes a starter file to that location.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${KEYWARD_JWT_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
// Server and database:
//
//	server:
//	  http_addr: "127.0.0.1:8545"
//	database:
//	  path: "/var/lib/keyward/keyward.db"
//
// Security parameters, shared by every account:
//
//	security:
//	  security_delay: "48h"       # changeAdminKey, changeAllOperationKeys, unfreeze, backup recovery
//	  backup_add_delay: "24h"     # before a new backup becomes usable
//	  backup_remove_delay: "72h"  # before a removed backup lapses
//	  operation_key_slots: 3
//	  max_backups: 6
//
// Module registry. Names bind an address to an implementation (account or
// dualsigs); entries are fixed for the life of the process:
//
//	registry:
//	  address: "0x...f0001"   # manager identity recorded on accounts
//	  capacity: 8
//	  modules:
//	    - name: account
//	      address: "0x...a0001"
//	      authorized: true
//
// Logging and metrics:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//	metrics:
//	  enabled: true
//	  path: "/metrics"
package config
