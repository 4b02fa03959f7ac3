package domain

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID prefixes. IDs are {prefix}{ulid_lowercase}.
const (
	UserIDPrefix       = "usr-"
	CredentialIDPrefix = "crd-"
	TradeIDPrefix      = "trd-"
	DepositIDPrefix    = "dep-"
	WithdrawalIDPrefix = "wdr-"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// timeNow is swapped in tests.
var timeNow = time.Now

// NewID returns a new prefixed, time-ordered identifier.
func NewID(prefix string) (string, error) {
	entropyMu.Lock()
	id, err := ulid.New(ulid.Timestamp(timeNow()), entropy)
	entropyMu.Unlock()
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return prefix + strings.ToLower(id.String()), nil
}

// IsValidID reports whether id has the given prefix followed by a ULID.
func IsValidID(id, prefix string) bool {
	if !strings.HasPrefix(id, prefix) || len(id) != len(prefix)+ulid.EncodedSize {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(id[len(prefix):]))
	return err == nil
}

// currentTimeMillis returns the current time in Unix milliseconds.
func currentTimeMillis() int64 {
	return timeNow().UnixMilli()
}
