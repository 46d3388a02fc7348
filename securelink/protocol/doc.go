// Package protocol defines the securelink data model and its wire format.
//
// KexMessage carries one handshake leg and is signed over a digest of its
// fields. Message is the AEAD envelope for application data. Both travel as
// MessagePack arrays in fixed field order inside length-prefixed frames.
package protocol
