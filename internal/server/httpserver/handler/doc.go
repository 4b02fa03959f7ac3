// Package handler provides HTTP request handlers for TradeGate.
//
// Endpoints:
//
//   - Users: /users/register, /users/login, /users/me
//   - Exchange credentials: /api-keys, /api-keys/{id}
//   - Ledger: /trading/trades, /trading/deposits, /trading/withdrawals,
//     /trading/execute
//   - Signals: /webhook/tradingview
//   - Security administration: /admin/blocklist, /admin/users
//   - Service: /, /health
//
// Every JSON response uses the Response envelope. Authentication and the
// request defense pipeline are applied by the httpserver middleware chain;
// handlers read the authenticated user from the request context.
package handler
