// Package hash provides the 64-bit version token used to identify
// artifact versions across the wire protocol and the version store.
//
// Tokens are xxHash64 digests of the full artifact bytes. They identify
// versions; they are not a cryptographic integrity guarantee.
package hash
