// Package model holds the payloads exchanged between the HTTP layer,
// the services and the stores.
package model
