package notify

import (
	"fmt"
	"time"
)

var germanWeekdays = [...]string{
	"Sonntag", "Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag",
}

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// FormatGermanDate renders t like "Mittwoch, 21. Oktober".
func FormatGermanDate(t time.Time) string {
	return fmt.Sprintf("%s, %02d. %s", germanWeekdays[t.Weekday()], t.Day(), germanMonths[t.Month()-1])
}
