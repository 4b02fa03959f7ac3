// Package confloader loads layered configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Defaults already present in the target struct
//  2. YAML configuration file
//  3. .env files (only for variables not already set in the process)
//  4. Environment variables with the TRADEGATE_ prefix
//
// Environment names map to keys by lowercasing and matching against the
// target's koanf tags, so TRADEGATE_SECURITY_JWT_SECRET resolves to
// security.jwt_secret rather than security.jwt.secret.
//
// Watcher reloads selected keys (log.level) when the file changes.
package confloader
