// Package crypto provides the cryptographic primitives of securelink.
//
// Contents:
//   - AEAD encryption with algorithm agility: ChaCha20-Poly1305 (RFC 8439)
//     and AES-256-GCM, selected by Variant
//   - Direction-tagged counter nonces (NonceSequence)
//   - Ephemeral P-256 ECDH with SEC1 compressed public keys
//   - Optional HKDF-SHA256 session key derivation
package crypto
