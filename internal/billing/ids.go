package billing

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	BillPrefix    = "NB"
	ReturnPrefix  = "RB"
	UpdatedPrefix = "UB"

	numberWidth = 3
)

// FormatBillNo renders a sequence number as NB001, NB042, NB1000.
func FormatBillNo(n int64) string {
	return fmt.Sprintf("%s%0*d", BillPrefix, numberWidth, n)
}

// ParseBillNo extracts the numeric part of an NB identifier.
func ParseBillNo(billNo string) (int64, error) {
	return parseNumber(billNo, BillPrefix)
}

func parseNumber(id, prefix string) (int64, error) {
	if !strings.HasPrefix(id, prefix) {
		return 0, newError(ErrInvalidIdentifier, "%q is not a %s identifier", id, prefix)
	}
	digits := id[len(prefix):]
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return 0, newError(ErrInvalidIdentifier, "%q has a non-numeric suffix", id)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, newError(ErrInvalidIdentifier, "%q: %v", id, err)
	}
	return n, nil
}

// NormalizeBillNo accepts loose user input ("7", "007", "nb7", " NB007 ") and returns the
// canonical bill number.
func NormalizeBillNo(input string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(input))
	s = strings.TrimPrefix(s, BillPrefix)
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return "", newError(ErrInvalidIdentifier, "%q is not a bill number", input)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return "", newError(ErrInvalidIdentifier, "%q: %v", input, err)
	}
	return FormatBillNo(n), nil
}

// ReturnIDFor swaps the prefix and keeps the digits verbatim, so NB007 -> RB007.
func ReturnIDFor(billNo string) (string, error) {
	if _, err := ParseBillNo(billNo); err != nil {
		return "", err
	}
	return ReturnPrefix + billNo[len(BillPrefix):], nil
}

// UpdatedIDFor maps NB007 -> UB007.
func UpdatedIDFor(billNo string) (string, error) {
	if _, err := ParseBillNo(billNo); err != nil {
		return "", err
	}
	return UpdatedPrefix + billNo[len(BillPrefix):], nil
}

// BillNoFromReturnID is the inverse of ReturnIDFor.
func BillNoFromReturnID(returnID string) (string, error) {
	if _, err := parseNumber(returnID, ReturnPrefix); err != nil {
		return "", err
	}
	return BillPrefix + returnID[len(ReturnPrefix):], nil
}

// BillNoFromUpdatedID is the inverse of UpdatedIDFor.
func BillNoFromUpdatedID(updatedID string) (string, error) {
	if _, err := parseNumber(updatedID, UpdatedPrefix); err != nil {
		return "", err
	}
	return BillPrefix + updatedID[len(UpdatedPrefix):], nil
}
