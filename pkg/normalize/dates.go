package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
)

// CanonicalDateLayout is the layout of every non-empty Record.DateInfo.
const CanonicalDateLayout = "2006-01-02"

var monthsPT = map[string]time.Month{
	"janeiro": time.January, "jan": time.January,
	"fevereiro": time.February, "fev": time.February,
	"marco": time.March, "mar": time.March,
	"abril": time.April, "abr": time.April,
	"maio": time.May, "mai": time.May,
	"junho": time.June, "jun": time.June,
	"julho": time.July, "jul": time.July,
	"agosto": time.August, "ago": time.August,
	"setembro": time.September, "set": time.September,
	"outubro": time.October, "out": time.October,
	"novembro": time.November, "nov": time.November,
	"dezembro": time.December, "dez": time.December,
}

var (
	weekdayPrefix = regexp.MustCompile(`^(domingo|segunda|terca|quarta|quinta|sexta|sabado)(-feira)?,?\s+`)
	longDate      = regexp.MustCompile(`^(\d{1,2})(?:º|°|o)?\s+de\s+([a-z]+)\.?\s+de\s+(\d{4})$`)
	numericDate   = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4}|\d{2})$`)
	isoDate       = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:[t ].*)?$`)
)

// rangeMarkers flag text that spans more than one day. Ranges are never
// collapsed onto one endpoint.
var rangeMarkers = []string{" a ", " ate ", " - ", " – ", " — ", " e "}

// StandardizeDate converts a date written in Portuguese prose or numeric form
// to YYYY-MM-DD. Ranges, "n/a"-style placeholders, invalid calendar dates and
// unrecognized text all yield "".
func StandardizeDate(s string) string {
	s = catalog.Fold(s)
	if isPlaceholder(s) {
		return ""
	}
	for _, m := range rangeMarkers {
		if strings.Contains(s, m) {
			return ""
		}
	}
	s = weekdayPrefix.ReplaceAllString(s, "")

	if m := isoDate.FindStringSubmatch(s); m != nil {
		return buildDate(m[1], m[2], m[3])
	}
	if m := numericDate.FindStringSubmatch(s); m != nil {
		year := m[3]
		if len(year) == 2 {
			year = "20" + year
		}
		return buildDate(year, m[2], m[1])
	}
	if m := longDate.FindStringSubmatch(s); m != nil {
		month, ok := monthsPT[m[2]]
		if !ok {
			return ""
		}
		return buildDate(m[3], strconv.Itoa(int(month)), m[1])
	}
	return ""
}

func buildDate(year, month, day string) string {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return ""
	}
	if m < 1 || m > 12 || d < 1 {
		return ""
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return ""
	}
	return t.Format(CanonicalDateLayout)
}
