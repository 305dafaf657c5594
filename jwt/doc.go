// Package jwt issues and verifies the two token kinds used by goQuiz: short-lived
// access tokens and long-lived refresh tokens carrying a rotation id (jti).
//
// The codec is pure. Revocation and rotation state lives in package ledger.
package jwt
