// Package session implements the securelink handshake and encrypted channel.
//
// Two identities establish a session with one signed ECDHE round trip over
// P-256. The initiator sends a KexMessage carrying its identity key, a fresh
// ephemeral key, its advertised endpoint and an ECDSA signature over all of
// them; the responder verifies it and answers with its own signed
// KexMessage. Both sides then compute the same 32-byte session key, used
// directly or expanded with HKDF depending on KeyDerivation.
//
// Messages are sealed with ChaCha20-Poly1305 or AES-256-GCM. Nonces carry
// the sender's direction tag and a per-direction counter, so the two sides
// never reuse a nonce under the shared key, and a message reflected back to
// its sender is rejected. Received plaintexts are queued in arrival order.
package session
