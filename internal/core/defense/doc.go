// Package defense implements the per-request defense pipeline.
//
// Every inbound request is evaluated by an ordered list of stages:
//
//  1. BlocklistStage rejects identities on the blocklist (403).
//  2. RateLimitStage enforces a sliding window per identity (429).
//  3. HeaderStage validates User-Agent and Content-Type (400).
//  4. InjectionStage scans the URL and query values for SQL injection
//     and XSS markers; a match blocklists the identity (403).
//
// Evaluation stops at the first denial. Mutable state (blocklist and rate
// windows) lives behind the StateStore interface so the same pipeline can
// run against an in-process store or a shared Redis store.
package defense
