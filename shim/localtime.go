package shim

import (
	"context"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/quickjs-bridge/errors"
)

// struct tm field offsets on wasm32.
const (
	tmSec    = 0
	tmMin    = 4
	tmHour   = 8
	tmMday   = 12
	tmMon    = 16
	tmYear   = 20
	tmWday   = 24
	tmYday   = 28
	tmIsdst  = 32
	tmGmtoff = 36
)

// tzNameSize is the buffer size the guest reserves for each zone name.
const tzNameSize = 17

// Localtime fills the struct tm at tmPtr for the Unix time t (seconds) in
// the configured zone.
func (s *Shim) Localtime(t int64, tmPtr uint32) {
	date := time.Unix(t, 0).In(s.cfg.Location)
	_, offset := date.Zone()

	d := s.views.Current().Data
	ok := d.PutInt32(tmPtr+tmSec, int32(date.Second())) &&
		d.PutInt32(tmPtr+tmMin, int32(date.Minute())) &&
		d.PutInt32(tmPtr+tmHour, int32(date.Hour())) &&
		d.PutInt32(tmPtr+tmMday, int32(date.Day())) &&
		d.PutInt32(tmPtr+tmMon, int32(date.Month())-1) &&
		d.PutInt32(tmPtr+tmYear, int32(date.Year()-1900)) &&
		d.PutInt32(tmPtr+tmWday, int32(date.Weekday())) &&
		d.PutInt32(tmPtr+tmYday, int32(date.YearDay()-1)) &&
		d.PutInt32(tmPtr+tmIsdst, boolInt32(date.IsDST())) &&
		d.PutInt32(tmPtr+tmGmtoff, int32(offset))
	if !ok {
		s.Abort(errors.TrapAbort, fmt.Sprintf("_localtime_js: struct tm at 0x%08x out of bounds", tmPtr))
	}
}

// Tzset writes the standard-time offset west of UTC in seconds, the DST
// flag and the "UTC±hhmm" names of the standard and daylight zones.
func (s *Shim) Tzset(timezone, daylight, stdName, dstName uint32) {
	year := s.now().In(s.cfg.Location).Year()
	winter := time.Date(year, time.January, 1, 0, 0, 0, 0, s.cfg.Location)
	summer := time.Date(year, time.July, 1, 0, 0, 0, 0, s.cfg.Location)

	// minutes west of UTC, as Date.getTimezoneOffset reports them
	winterOffset := zoneMinutesWest(winter)
	summerOffset := zoneMinutesWest(summer)
	stdOffset := max(winterOffset, summerOffset)

	d := s.views.Current().Data
	ok := d.PutInt32(timezone, int32(stdOffset*60)) &&
		d.PutInt32(daylight, boolInt32(winterOffset != summerOffset))

	winterName := zoneName(winterOffset)
	summerName := zoneName(summerOffset)
	if summerOffset < winterOffset {
		ok = ok && s.putCString(stdName, winterName) && s.putCString(dstName, summerName)
	} else {
		ok = ok && s.putCString(dstName, winterName) && s.putCString(stdName, summerName)
	}
	if !ok {
		s.Abort(errors.TrapAbort, "_tzset_js: output pointer out of bounds")
	}
}

func (s *Shim) putCString(ptr uint32, str string) bool {
	if len(str) > tzNameSize-1 {
		str = str[:tzNameSize-1]
	}
	buf := append([]byte(str), 0)
	return s.views.Current().Data.PutBytes(ptr, buf)
}

func zoneMinutesWest(t time.Time) int {
	_, offset := t.Zone()
	return -offset / 60
}

func zoneName(minutesWest int) string {
	sign := '-'
	if minutesWest < 0 {
		sign = '+'
		minutesWest = -minutesWest
	}
	return fmt.Sprintf("UTC%c%02d%02d", sign, minutesWest/60, minutesWest%60)
}

func boolInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func (s *Shim) localtime(_ context.Context, _ api.Module, stack []uint64) {
	s.Localtime(int64(stack[0]), api.DecodeU32(stack[1]))
}

func (s *Shim) tzset(_ context.Context, _ api.Module, stack []uint64) {
	s.Tzset(api.DecodeU32(stack[0]), api.DecodeU32(stack[1]), api.DecodeU32(stack[2]), api.DecodeU32(stack[3]))
}
