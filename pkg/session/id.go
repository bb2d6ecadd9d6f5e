package session

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	idPrefix     = "sess_"
	idRandomLen  = 9
	base36Digits = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewSessionID returns an ID of the form sess_<epoch-millis>_<9 base36
// chars>. Uniqueness is probabilistic and the ID is not a secret.
func NewSessionID(now time.Time) string {
	var b strings.Builder
	b.Grow(len(idPrefix) + 14 + 1 + idRandomLen)

	b.WriteString(idPrefix)
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('_')
	for i := 0; i < idRandomLen; i++ {
		b.WriteByte(base36Digits[rand.IntN(len(base36Digits))])
	}

	return b.String()
}
