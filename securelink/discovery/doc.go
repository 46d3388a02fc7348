// Package discovery maps peer identities to network endpoints.
package discovery
