// Package domain defines the core domain models for TradeGate.
//
// Domain models are plain value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - User: account holder, owner of every other entity
//   - Credential: an exchange API key pair stored as vault blobs
//   - Trade, Deposit, Withdrawal: the per-user ledger
//   - Signal: a decoded TradingView alert
//   - Errors: coded domain errors mapped onto HTTP statuses
package domain
