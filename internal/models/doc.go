// Package models defines the domain types of the deposit escrow ledger.
//
// # Models
//
//   - Agreement: the escrow record for one property, keyed by property id
//   - State: Empty, Created, Active, Released, Ended (forward only)
//   - Amount: non-negative 256-bit wei quantity, no floating point
//   - Address: opaque participant identity
//   - Event: outbox entry describing one committed transition
//
// # Design Principles
//
//  1. Values, not pointers, for money: Amount arithmetic never aliases.
//  2. Identities are compared by equality only. Hex accounts are normalised
//     to their checksum spelling on parse so equality matches intent.
//  3. Records are cloned on the way in and out of storage; the ledger owns
//     the only mutable copy during an operation.
package models
