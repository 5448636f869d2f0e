package domain

import (
	"fmt"
	"math/rand"
	"time"
)

// NewTransferReference generates a transfer reference of the form
// TRF<unix-timestamp><6 random digits>. The value is partly time-derived and
// partly random, so uniqueness is only enforced at insert time: the store
// retries with a fresh reference on a unique-constraint violation.
func NewTransferReference() string {
	return fmt.Sprintf("TRF%d%06d", time.Now().Unix(), rand.Intn(1000000))
}

// NewTransactionReference generates a journal reference of the form
// TXN<YYYYMMDDHHMMSS><6 random digits>. Same collision handling as transfer
// references.
func NewTransactionReference() string {
	return fmt.Sprintf("TXN%s%06d", time.Now().UTC().Format("20060102150405"), rand.Intn(1000000))
}

// NewAccountNumber generates a 10-digit human-facing account number.
// Uniqueness is enforced by the accounts table; callers retry on collision.
func NewAccountNumber() string {
	return fmt.Sprintf("%010d", rand.Int63n(10000000000))
}
