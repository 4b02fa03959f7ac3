// Package storage provides persistent storage for TradeGate.
//
// KVEngine abstracts an embedded key-value engine; BadgerEngine implements
// it on Badger v3 with periodic value-log GC, backups and Prometheus
// gauges. KVStore maps the service repositories (users, exchange
// credentials, trades and transfers) onto a KVEngine using JSON values
// and prefix-ordered keys:
//
//	user/{id}                  -> user record
//	user-email/{email}         -> user id
//	cred/{id}                  -> credential (vault blobs stored verbatim)
//	cred-user/{user}/{id}      -> ""
//	trade/{user}/{id}          -> trade
//	deposit/{user}/{id}        -> deposit
//	withdrawal/{user}/{id}     -> withdrawal
//
// IDs are ULID-based, so a prefix scan returns entries in creation order.
//
// The sqlstore subpackage offers the same repositories on SQLite and the
// memory subpackage keeps them in process.
package storage
