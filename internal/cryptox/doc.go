// Package cryptox groups the cryptographic building blocks of mailauth:
// bcrypt password hashing, PBKDF2 per-user key derivation, the JWE envelope
// used to hand sealed secrets to clients, and AES-GCM sealing of stored SMTP
// credentials.
package cryptox
