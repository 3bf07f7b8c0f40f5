package models

import (
	"strings"
	"unicode"
)

// UnknownBranch is the sentinel branch assigned to rows whose branch cell is
// empty or unreadable. Keeping a real value (instead of an empty string) means
// such rows still participate in joins and summaries under a single bucket.
const UnknownBranch = "unknown"

// MinProductIDDigits is the minimum number of digits a product identifier must
// carry after cleanup to be considered joinable. Shorter codes are internal
// shelf codes, not ISBN/EAN-style identifiers, and cannot be matched across
// sources.
const MinProductIDDigits = 8

// NormalizeBranch canonicalizes a branch name so that rows originating from
// spreadsheets, database extracts and operator input compare equal. The result
// is trimmed and lowercased; empty input maps to UnknownBranch.
func NormalizeBranch(raw string) string {
	branch := strings.ToLower(strings.TrimSpace(raw))
	if branch == "" {
		return UnknownBranch
	}
	return branch
}

// NormalizeProductID canonicalizes a product identifier to its digit-only
// form. Spreadsheet exports frequently serialize identifiers as floats
// ("9788512345678.0") or with formatting characters ("978-85-123-4567-8");
// both collapse to the same canonical key. Returns ok=false when fewer than
// MinProductIDDigits digits remain, in which case the row must be dropped
// before the merge stage.
//
// The function is total and idempotent: normalizing an already-normalized
// identifier returns it unchanged.
func NormalizeProductID(raw string) (id string, ok bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, ".0")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	id = b.String()
	if len(id) < MinProductIDDigits {
		return "", false
	}
	return id, true
}

// NormalizeKey builds a canonical join key from raw branch and product cells.
// ok is false when the product identifier is invalid.
func NormalizeKey(rawBranch, rawProduct string) (LineKey, bool) {
	productID, ok := NormalizeProductID(rawProduct)
	if !ok {
		return LineKey{}, false
	}
	return LineKey{
		Branch:    NormalizeBranch(rawBranch),
		ProductID: productID,
	}, true
}

// ParsePromoSet parses an operator-supplied list of promotional product ids
// (separated by whitespace, commas, semicolons or newlines) into a set of
// normalized identifiers. Entries that do not normalize are skipped.
func ParsePromoSet(raw string) map[string]struct{} {
	set := make(map[string]struct{})
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	for _, f := range fields {
		if id, ok := NormalizeProductID(f); ok {
			set[id] = struct{}{}
		}
	}
	return set
}
