// Package config loads runtime configuration for the moneyxfer CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string     base URL of the backend
//	-d string     path of the local SQLite database holding the session
//	-i int        online status check interval (seconds)
//	-t duration   timeout for a single backend request
//	-w duration   warn this long before the session expires (0 disables)
//	-l string     log level: debug, info, warn, error
//	-watch bool   follow session changes made by other processes
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds. Absent keys keep their previous value:
//
//	{
//	  "server_url": "http://localhost:5000",
//	  "database_path": "moneyxfer.db",
//	  "online_check_interval": "3s",
//	  "request_timeout": "10s",
//	  "expiry_warning": "1m",
//	  "watch_store": true,
//	  "log_level": "info"
//	}
package config
