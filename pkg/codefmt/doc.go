// Package codefmt validates and canonicalizes the one-time codes used by the
// login flow (TOTP codes, backup codes and recovery codes) and scores password
// strength.
//
// Every function in this package is pure: identical input always yields
// identical output and nothing is logged or stored.
package codefmt
