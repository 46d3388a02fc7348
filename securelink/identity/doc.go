// Package identity holds the long-term signing identity of a peer.
//
// Identities are NIST P-256 key pairs. Public keys travel in SEC1 compressed
// form (33 bytes) and signatures are fixed-size ECDSA r || s over a SHA-256
// digest (64 bytes). Persistence lives in package keystore.
package identity
