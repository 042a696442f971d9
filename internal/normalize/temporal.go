package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/BearBump/ParcelView/internal/models"
)

// DisplayLayout — формат вывода дат, не зависит от локали клиента.
const DisplayLayout = "02 Jan 2006, 03:04 PM"

const componentsLayout = "2006-01-02 15:04:05"

// matcher пробует распознать строку; никогда не паникует.
type matcher func(s string) (time.Time, bool)

var (
	reDateTimeFraction = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2}) (\d{2}):(\d{2}):(\d{2})\.(\d+)$`)
	reDateTime         = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2}) (\d{2}):(\d{2}):(\d{2})$`)
	reDate             = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

// Порядок важен: первый сработавший выигрывает.
var matchers = []matcher{
	componentsMatcher(reDateTimeFraction),
	componentsMatcher(reDateTime),
	componentsMatcher(reDate),
	freeFormMatcher,
}

// componentsMatcher собирает дату из групп regexp. Недостающее время — 00:00:00,
// доли секунды отбрасываются. Компоненты вне диапазона (месяц 13 и т.п.) — промах.
func componentsMatcher(re *regexp.Regexp) matcher {
	return func(s string) (time.Time, bool) {
		m := re.FindStringSubmatch(s)
		if m == nil {
			return time.Time{}, false
		}
		c := [6]string{"", "", "", "00", "00", "00"}
		copy(c[:], m[1:])

		stamp := c[0] + "-" + c[1] + "-" + c[2] + " " + c[3] + ":" + c[4] + ":" + c[5]
		t, err := time.Parse(componentsLayout, stamp)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
}

func freeFormMatcher(s string) (t time.Time, ok bool) {
	// dateparse исторически паниковал на части входов.
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()
	parsed, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.UTC(), true
}

// ParseInstant распознаёт дату в одном из поддерживаемых форматов.
// Все метки без зоны трактуются как UTC.
func ParseInstant(text string) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, false
	}
	for _, m := range matchers {
		if t, ok := m(s); ok {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatForDisplay returns "N/A" for empty or "null" input, the display form
// of a recognized instant, or the input unchanged.
func FormatForDisplay(text string) string {
	if isAbsent(text) {
		return models.NotAvailable
	}
	if t, ok := ParseInstant(text); ok {
		return t.Format(DisplayLayout)
	}
	return text
}

// FormatDateTime склеивает дату и время, пришедшие отдельными полями.
func FormatDateTime(date, clock string) string {
	if isAbsent(date) {
		return models.NotAvailable
	}
	combined := strings.TrimSpace(date + " " + clock)
	if t, ok := ParseInstant(combined); ok {
		return t.Format(DisplayLayout)
	}
	return combined
}

func isAbsent(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "null"
}
