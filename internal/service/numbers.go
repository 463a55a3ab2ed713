package service

import (
	"strings"
	"time"

	"github.com/iliyamo/restaurant-pos/internal/utils"
)

// maxNumberAttempts bounds how often a clashing sale or hold number is
// regenerated before the commit gives up.
const maxNumberAttempts = 3

// NewNumber builds a receipt-friendly identifier such as
// S-20261014-153045-9F2C1A: a prefix, the local creation time to the second
// and a random suffix.  Uniqueness is guaranteed by the storage layer, the
// suffix only makes clashes rare.
func NewNumber(prefix string, now time.Time, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.UTC
	}
	suffix, err := utils.RandomHex(3)
	if err != nil {
		return "", err
	}
	return prefix + "-" + now.In(loc).Format("20060102-150405") + "-" + strings.ToUpper(suffix), nil
}
