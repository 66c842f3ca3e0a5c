// Package market classifies A-share instrument codes by exchange and board.
package market

import (
	"fmt"
	"strings"

	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"
)

// Exchange suffixes used by normalized codes.
const (
	SuffixShanghai = "SH"
	SuffixShenzhen = "SZ"
	SuffixBeijing  = "BJ"
)

// Daily limit ratios per board.
const (
	MainBoardLimit = 0.10
	STARLimit      = 0.20
	ChiNextLimit   = 0.20
)

var (
	shanghaiMainPrefixes = []string{"600", "601", "603", "605"}
	shenzhenMainPrefixes = []string{"000", "001"}
	chiNextPrefixes      = []string{"300"}
	starPrefixes         = []string{"688"}
	beijingPrefixes      = []string{"82", "83", "87"}
)

func hasAnyPrefix(code string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// StripSuffix removes an exchange suffix: "600519.SH" -> "600519".
func StripSuffix(code string) string {
	code = strings.TrimSpace(code)
	if i := strings.IndexByte(code, '.'); i >= 0 {
		return code[:i]
	}
	return code
}

// ValidateCode checks that code (with or without suffix) is six digits.
func ValidateCode(code string) error {
	bare := StripSuffix(code)
	if len(bare) != 6 {
		return fmt.Errorf("%w: %q must be 6 digits", ports.ErrInvalidStockCode, code)
	}
	for _, r := range bare {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: %q must be 6 digits", ports.ErrInvalidStockCode, code)
		}
	}
	return nil
}

// NormalizeCode appends the exchange suffix: "600519" -> "600519.SH".
// Codes that already carry a suffix are upper-cased; unknown prefixes are returned unchanged.
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if strings.Contains(code, ".") {
		return strings.ToUpper(code)
	}
	switch {
	case hasAnyPrefix(code, shanghaiMainPrefixes), hasAnyPrefix(code, starPrefixes):
		return code + "." + SuffixShanghai
	case hasAnyPrefix(code, shenzhenMainPrefixes), hasAnyPrefix(code, chiNextPrefixes):
		return code + "." + SuffixShenzhen
	case hasAnyPrefix(code, beijingPrefixes):
		return code + "." + SuffixBeijing
	default:
		return code
	}
}

// BoardOf returns the board a code trades on. Anything that is not STAR or
// ChiNext, including an empty code, is treated as main board.
func BoardOf(code string) domain.Board {
	bare := StripSuffix(code)
	switch {
	case hasAnyPrefix(bare, starPrefixes):
		return domain.BoardSTAR
	case hasAnyPrefix(bare, chiNextPrefixes):
		return domain.BoardChiNext
	default:
		return domain.BoardMain
	}
}

// LimitRatio returns the daily price-limit ratio for a code.
func LimitRatio(code string) float64 {
	switch BoardOf(code) {
	case domain.BoardSTAR:
		return STARLimit
	case domain.BoardChiNext:
		return ChiNextLimit
	default:
		return MainBoardLimit
	}
}

// LimitBand returns the (down, up) price band around prevClose.
func LimitBand(prevClose, ratio float64) (down, up float64) {
	return prevClose * (1 - ratio), prevClose * (1 + ratio)
}
