// Package testinfra runs end-to-end tests of the session coordinator against
// a real Synapse homeserver.
//
// Synapse must allow shared-secret registration with the secret
// "test-shared-secret".
//
// Run:  SYNAPSE_URL=http://localhost:18008 go test -tags e2e ./testinfra/
package testinfra
