// Package memory provides mutex-guarded repositories used in standalone mode
// (no database configured) and in tests. They honor the same uniqueness,
// versioning and idempotency contracts as the postgres repositories.
package memory
