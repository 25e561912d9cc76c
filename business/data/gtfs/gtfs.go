// Package gtfs provides an in memory index over a static gtfs schedule and the time and calendar arithmetic
// needed to place scheduled stop times onto real dates.
package gtfs

import (
	"fmt"
	"strings"
	"time"

	"github.com/iqskr/AVLSystem/foundation/coerce"
)

// Record is a single row from a gtfs csv file keyed by column header
type Record map[string]string

// str retrieves trimmed column value, empty if missing
func (r Record) str(name string) string {
	return strings.TrimSpace(r[name])
}

// intOr retrieves column as int, def if missing or unparsable
func (r Record) intOr(name string, def int) int {
	result, _ := coerce.IntOr(r[name], def)
	return result
}

// floatOr retrieves column as float64, def if missing or unparsable
func (r Record) floatOr(name string, def float64) float64 {
	result, _ := coerce.FloatOr(r[name], def)
	return result
}

// RawTables holds the unprocessed rows of the gtfs files used to build a ScheduleIndex.
// A nil table means the file was not present in the gtfs archive.
type RawTables struct {
	Routes        []Record
	Trips         []Record
	Stops         []Record
	StopTimes     []Record
	Calendar      []Record
	CalendarDates []Record
}

// DataSet describes where and when a gtfs schedule was retrieved.
type DataSet struct {
	URL string
	// ETag is the ETag header if available from the source web site for the gtfs file. Is empty if not available
	ETag string
	// LastModifiedTimestamp is the unix epoch seconds the source web site provided for the last time the gtfs
	// file was modified, is 0 if not available
	LastModifiedTimestamp int64
	DownloadedAt          time.Time
}

func (d DataSet) String() string {
	lastModified := ""
	if d.LastModifiedTimestamp != 0 {
		lastModTime := time.Unix(d.LastModifiedTimestamp, 0)
		lastModified = formatTime(&lastModTime)
	}
	return fmt.Sprintf("DataSet url:%s, ETag:%s, lastModified:%s downloaded:%s",
		d.URL, d.ETag, lastModified, formatTime(&d.DownloadedAt))
}

func formatTime(time *time.Time) string {
	if time == nil || time.IsZero() {
		return ""
	}
	return time.Format("2006-01-02T15:04:05")
}
