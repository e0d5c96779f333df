package numbering

import "fmt"

// numberWidth is the zero-padding width of the sequential part. The
// resulting string is a legal identifier and must be reproducible
// bit-exactly: PREFIX-00000126.
const numberWidth = 8

// Format renders a document number from its series prefix and counter
// value. Pure; callers format only after the counter increment belongs to a
// committing transaction, so a formatted number is always backed by a
// committed counter value.
func Format(prefix string, value int64) string {
	return fmt.Sprintf("%s-%0*d", prefix, numberWidth, value)
}
