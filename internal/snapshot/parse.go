// Package snapshot discovers and orders project snapshot archives.
//
// A snapshot is a zip file named <project>_<suffix>.zip where the suffix
// encodes when the snapshot was taken. Several conventions coexist in real
// archives: compact dates (20250923, 20250923b, 20250909_1, 250507),
// separator dates (22-08-01, 02-27-21, 8-14-21), incremental sequence
// numbers (0001), and version strings (0.1, v2). Parsing normalizes each
// suffix into a Key that orders correctly across conventions.
package snapshot

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies a parsed suffix. Versions sort before sequence numbers,
// which sort before dates.
type Kind int

const (
	// KindVersion covers dotted versions ("0.1") and v-prefixed ones ("v2").
	KindVersion Kind = iota
	// KindSequence covers bare incremental numbers of three or more digits.
	KindSequence
	// KindDate covers every date convention.
	KindDate
)

// String returns the short tag used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindVersion:
		return "ver"
	case KindSequence:
		return "seq"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// Key is the sortable form of a snapshot suffix. Keys compare by Kind
// first, then by Parts element-wise with a shorter prefix ordering first.
// For dates Parts is (year, month, day, letterOrdinal, subNumber).
type Key struct {
	Kind  Kind
	Parts []int
}

// Less reports whether k orders strictly before other.
func (k Key) Less(other Key) bool {
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}
	for i := 0; i < len(k.Parts) && i < len(other.Parts); i++ {
		if k.Parts[i] != other.Parts[i] {
			return k.Parts[i] < other.Parts[i]
		}
	}

	return len(k.Parts) < len(other.Parts)
}

var (
	compactDateRe   = regexp.MustCompile(`^(\d{4})(0[1-9]|1[0-2])(0[1-9]|[12]\d|3[01])([a-z]?)(?:_(\d+))?$`)
	shortDateRe     = regexp.MustCompile(`^(\d{2})(0[1-9]|1[0-2])(0[1-9]|[12]\d|3[01])$`)
	separatorDateRe = regexp.MustCompile(`^(\d{1,2})[-_](\d{1,2})[-_](\d{2,4})$`)
	sequenceRe      = regexp.MustCompile(`^(\d{3,})$`)
	dottedVersionRe = regexp.MustCompile(`^(\d+(?:\.\d+)+)$`)
	vPrefixRe       = regexp.MustCompile(`(?i)^v(\d+)$`)
)

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		panic(fmt.Sprintf("digit-only capture failed to parse: %q", s))
	}

	return n
}

// ParseSuffix parses the suffix portion of a snapshot filename into a Key.
// Patterns are tried in a fixed order so that an eight-digit date is never
// mistaken for a sequence number. The boolean is false when no convention
// matches.
func ParseSuffix(suffix string) (Key, bool) {
	if m := compactDateRe.FindStringSubmatch(suffix); m != nil {
		year, month, day := mustAtoi(m[1]), mustAtoi(m[2]), mustAtoi(m[3])
		letterOrd := 0
		if m[4] != "" {
			letterOrd = int(m[4][0]-'a') + 1
		}
		subNum := 0
		if m[5] != "" {
			subNum = mustAtoi(m[5])
		}

		return Key{Kind: KindDate, Parts: []int{year, month, day, letterOrd, subNum}}, true
	}

	if m := shortDateRe.FindStringSubmatch(suffix); m != nil {
		year := mustAtoi(m[1]) + 2000

		return Key{Kind: KindDate, Parts: []int{year, mustAtoi(m[2]), mustAtoi(m[3]), 0, 0}}, true
	}

	if m := separatorDateRe.FindStringSubmatch(suffix); m != nil {
		if key, ok := parseSeparatorDate(mustAtoi(m[1]), mustAtoi(m[2]), mustAtoi(m[3])); ok {
			return key, true
		}

		return Key{}, false
	}

	if m := sequenceRe.FindStringSubmatch(suffix); m != nil {
		return Key{Kind: KindSequence, Parts: []int{mustAtoi(m[1])}}, true
	}

	if m := dottedVersionRe.FindStringSubmatch(suffix); m != nil {
		fields := strings.Split(m[1], ".")
		parts := make([]int, len(fields))
		for i, f := range fields {
			parts[i] = mustAtoi(f)
		}

		return Key{Kind: KindVersion, Parts: parts}, true
	}

	if m := vPrefixRe.FindStringSubmatch(suffix); m != nil {
		return Key{Kind: KindVersion, Parts: []int{mustAtoi(m[1])}}, true
	}

	return Key{}, false
}

// parseSeparatorDate disambiguates dates written with dash or underscore
// separators. Real archives mix YY-MM-DD and the US MM-DD-YY ordering, so
// the segments are interpreted by elimination: a first segment above 12
// cannot be a month, a second segment above 12 cannot be a month's
// counterpart, and a third segment above 23 is too high for a recent
// two-digit year. The remaining ambiguous case defaults to MM-DD-YY with a
// warning on stderr.
func parseSeparatorDate(a, b, c int) (Key, bool) {
	var year, month, day int

	switch {
	case c >= 100:
		// Four-digit year in third position, US ordering.
		year, month, day = c, a, b
	case a > 12:
		year, month, day = a+2000, b, c
	case b > 12:
		year, month, day = c+2000, a, b
	case c > 23:
		year, month, day = a+2000, b, c
	default:
		fmt.Fprintf(os.Stderr, "Warning: ambiguous date suffix %d-%d-%d, assuming MM-DD-YY\n", a, b, c)
		year, month, day = c+2000, a, b
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || year < 2000 || year > 2099 {
		return Key{}, false
	}

	return Key{Kind: KindDate, Parts: []int{year, month, day, 0, 0}}, true
}
