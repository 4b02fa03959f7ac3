// Package service provides the application services of TradeGate.
//
// Services hold the business rules and orchestrate the domain models,
// the authenticator, the credential vault and the event bus. Storage is
// reached through the interfaces in repository.go so every service can be
// tested against hand-written mocks.
//
//   - UserService: registration, login and account lookup
//   - CredentialService: exchange API keys sealed by the vault
//   - LedgerService: trades, deposits and withdrawals
//   - WebhookService: signed TradingView signals
//   - SecurityService: blocklist administration
//
// bcrypt and vault work runs through a shared CryptoPool so a burst of
// logins cannot starve the process of CPU.
package service
