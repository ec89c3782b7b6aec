// Package log provides slog loggers that mask secrets before they are
// written.
//
// contactscan logs crawl targets, site headers and cookies taken from the
// configuration file, and request metadata. SecureHandler wraps any
// slog.Handler and replaces sensitive values with MaskValue:
//   - attributes whose key names a secret (cookie, authorization, token, ...)
//   - string values that look like credentials (bearer and basic auth, JWTs)
//   - sensitive entries of http.Header and map[string]string values
//   - passwords embedded in URLs
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, slog.LevelDebug)
//	logger.Info("fetching", "url", u, "cookie", site.Cookie)
//	slog.SetDefault(logger)
package log
