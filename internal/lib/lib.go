// Package lib groups infrastructure that does not belong to a single layer:
// bearer-token verification (auth), transactional email (email) and the
// Redis-backed background jobs (job).
package lib
