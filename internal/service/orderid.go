package service

import (
	"strings"
	"time"
)

// NewOrderUID formats ORD-<YYYYMMDD in UTC>-<6 upper-case hex>.
func NewOrderUID(now time.Time) (string, error) {
	suffix, err := randomHex(3)
	if err != nil {
		return "", err
	}
	return "ORD-" + now.UTC().Format("20060102") + "-" + strings.ToUpper(suffix), nil
}
