// Package models defines the persisted records of the loopauth host.
//
// [Flow] records one run of the loopback listener: the port it bound, how it ended and a redacted copy of the
// captured callback URL. All persistent entities implement [Model], and the [Repository] interface defines the
// CRUD operations repositories provide.
package models
