// Package auth provides authentication and authorisation primitives for
// eMart Core: user accounts with maker/checker/manager roles, Argon2id
// password hashing, JWT issuance and validation, and first-boot seeding.
//
// Role strings are canonicalised through NormalizeRole. Matching is
// case-insensitive, and the legacy "admin" role maps to manager so older
// accounts keep working.
package auth
