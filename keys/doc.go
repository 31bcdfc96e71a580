// Package keys provides the Ed25519 signing primitives behind data items.
//
// Stable:
//   - Sign, Verify and PublicKeyFromSeed over a raw 32-byte seed.
//   - Keypair, an ephemeral signer generated for exactly one upload.
//
// Keys produced here are never written to disk. Seeds are accepted only from
// the caller (ParseSeedHex, ReadSeedFile) for reproducible offline builds.
package keys
