package booking

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	EventOrderPrefix = "TK"
	LinkOrderPrefix  = "LNK-"
	linkCodePrefix   = "LNK-"

	// Excludes 0/O and 1/I so codes survive being read aloud.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// CodeGenerator produces order codes for a prefix.
type CodeGenerator func(prefix string) string

// NewOrderCode returns prefix + base36 milliseconds + three random symbols.
func NewOrderCode(prefix string) string {
	stamp := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	return prefix + stamp + randomString(3)
}

// NewLinkCode returns a code of the form LNK-XXXXXX.
func NewLinkCode() string {
	return linkCodePrefix + randomString(6)
}

var (
	slugStrip  = regexp.MustCompile(`[^\p{L}\p{N}\s_-]+`)
	slugSpaces = regexp.MustCompile(`[\s_]+`)
	slugDashes = regexp.MustCompile(`-{2,}`)
)

// NewSlug derives a URL slug from name with a random suffix.
func NewSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugSpaces.ReplaceAllString(slug, "-")
	slug = slugDashes.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	suffix := strings.ToLower(randomString(6))
	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}

func randomString(n int) string {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand unavailable: " + err.Error())
		}
		b[i] = codeAlphabet[idx.Int64()]
	}
	return string(b)
}
