package identity

import (
	"crypto/rand"
	"math/big"

	"github.com/lithammer/shortuuid/v4"
)

// Mode selects the shape of allocated participant identifiers.
type Mode string

const (
	// ModeShort issues 6-character uppercase alphanumeric IDs that a
	// participant can write down and hand-transcribe.
	ModeShort Mode = "short"
	// ModeToken issues full random unique tokens.
	ModeToken Mode = "token"
)

const (
	shortIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	shortIDLength   = 6
)

// Allocator issues anonymous participant identifiers. IDs carry no link to
// real identity; collision probability is negligible for study-sized cohorts.
type Allocator struct {
	mode Mode
}

func New(mode Mode) *Allocator {
	if mode == "" {
		mode = ModeShort
	}
	return &Allocator{mode: mode}
}

func (a *Allocator) Allocate() string {
	if a.mode == ModeToken {
		return shortuuid.New()
	}
	return shortID()
}

func shortID() string {
	b := make([]byte, shortIDLength)
	max := big.NewInt(int64(len(shortIDAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand never fails on supported platforms
			panic(err)
		}
		b[i] = shortIDAlphabet[n.Int64()]
	}
	return string(b)
}
