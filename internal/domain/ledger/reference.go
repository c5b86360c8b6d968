package ledger

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strings"
	"time"
)

// DefaultReferencePrefix is the prefix of generated transaction references
const DefaultReferencePrefix = "TXN"

const (
	referenceAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referenceSuffixSize = 6
)

var referencePattern = regexp.MustCompile(`^[A-Z]{1,8}-\d{8}-[A-Z0-9]{6}$`)

// ReferenceGenerator produces human-readable transaction references
type ReferenceGenerator interface {
	Next(postedOn time.Time) (string, error)
}

// RandomReferenceGenerator builds PREFIX-YYYYMMDD-XXXXXX references.
// Uniqueness is guaranteed by storage, not by the suffix.
type RandomReferenceGenerator struct {
	prefix string
	random io.Reader
}

// NewReferenceGenerator creates a generator using crypto/rand
func NewReferenceGenerator(prefix string) *RandomReferenceGenerator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultReferencePrefix
	}
	return &RandomReferenceGenerator{prefix: prefix, random: rand.Reader}
}

// Next returns a new reference for a posting made on postedOn
func (g *RandomReferenceGenerator) Next(postedOn time.Time) (string, error) {
	suffix := make([]byte, referenceSuffixSize)
	limit := big.NewInt(int64(len(referenceAlphabet)))
	for i := range suffix {
		n, err := rand.Int(g.random, limit)
		if err != nil {
			return "", fmt.Errorf("generate reference suffix: %w", err)
		}
		suffix[i] = referenceAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s-%s-%s", g.prefix, postedOn.Format("20060102"), suffix), nil
}

// IsValidReference reports whether ref has the PREFIX-YYYYMMDD-XXXXXX shape
func IsValidReference(ref string) bool {
	return referencePattern.MatchString(ref)
}
