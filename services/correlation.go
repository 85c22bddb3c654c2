package services

import (
	"strconv"
	"strings"

	"lms-module/errors"
)

const correlationDelimiter = "-"

// PurchaseIntent is the (course, purchaser) pair a payment was started for.
// It is never stored on its own; it travels inside a correlation token.
type PurchaseIntent struct {
	CourseID    string
	PurchaserID string
}

// EncodeCorrelation builds the token for a purchase intent as
// "<len(courseID)>:<courseID>-<purchaserID>". The length prefix keeps the
// token unambiguous when either identifier contains the delimiter.
func EncodeCorrelation(courseID, purchaserID string) (string, error) {
	if courseID == "" || purchaserID == "" {
		return "", errors.E(errors.Invalid, "course id and purchaser id are required for correlation")
	}
	return strconv.Itoa(len(courseID)) + ":" + courseID + correlationDelimiter + purchaserID, nil
}

// DecodeCorrelation reverses EncodeCorrelation. Tokens without a length
// prefix are read in the bare "<courseID>-<purchaserID>" form and must split
// into exactly two non-empty parts.
func DecodeCorrelation(token string) (PurchaseIntent, error) {
	if n, rest, ok := lengthPrefix(token); ok {
		if n <= 0 || n > len(rest)-2 || rest[n:n+1] != correlationDelimiter {
			return PurchaseIntent{}, invalidCorrelation(token)
		}
		intent := PurchaseIntent{CourseID: rest[:n], PurchaserID: rest[n+1:]}
		return intent, nil
	}

	parts := strings.Split(token, correlationDelimiter)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return PurchaseIntent{}, invalidCorrelation(token)
	}
	return PurchaseIntent{CourseID: parts[0], PurchaserID: parts[1]}, nil
}

func lengthPrefix(token string) (int, string, bool) {
	idx := strings.IndexByte(token, ':')
	if idx <= 0 {
		return 0, "", false
	}
	n, err := strconv.Atoi(token[:idx])
	if err != nil || strings.HasPrefix(token[:idx], "+") {
		return 0, "", false
	}
	return n, token[idx+1:], true
}

func invalidCorrelation(token string) error {
	return errors.E(errors.Invalid, "invalid correlation token: "+strconv.Quote(token))
}
