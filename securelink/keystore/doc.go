// Package keystore persists identity key pairs encrypted under a passphrase.
//
// The sealed form is a JSON envelope: the passphrase is stretched with
// Argon2id (or scrypt, for envelopes that record it) over a random salt and
// the key record is sealed with ChaCha20-Poly1305, the salt bound as
// associated data. A locator picks the backend:
//
//	/home/me/.securelink/identity.key       single file (FileStore)
//	shards:/mnt/a,/mnt/b,/mnt/c             Reed-Solomon shards (ShardedStore)
//
// Every failure surfaces as failure.KeyLoadFailed or failure.KeySaveFailed.
package keystore
