// Package kformat projects K values into human-readable text and HTML,
// for debugging and display rather than round-tripping (§4.5). Like
// kval.ToGo, it is a one-way projection: there is no parser back from
// formatted output to a Value.
//
// Column alignment uses text/tabwriter, the standard-library tool
// built exactly for this job; none of the pack's third-party
// dependencies touch column layout, so there is no ecosystem library to
// prefer here (recorded in DESIGN.md).
package kformat

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/kxipc/kxipc/kval"
)

// DefaultHeight is the row count beyond which Text/HTML elide a table's
// middle with a single "..." row (§4.5).
const DefaultHeight = 20

// reference epoch for q's date/time textual forms: 2000.01.01.
const daysFromUnixEpochToY2K = 10957

// Text renders v as fixed-width text. height bounds the number of
// table/vector rows shown before eliding the middle with "..."; 0 uses
// DefaultHeight.
func Text(v kval.Value, height int) (string, error) {
	if height <= 0 {
		height = DefaultHeight
	}
	f := &formatter{html: false}
	return f.value(v, height)
}

// HTML renders v as an HTML fragment: a <table> for tables and
// dictionaries, a <div> holding two <table>s for keyed tables, a <span>
// for vectors, and escaped plain text for atoms and errors. Cell content
// is escaped.
func HTML(v kval.Value, height int) (string, error) {
	if height <= 0 {
		height = DefaultHeight
	}
	f := &formatter{html: true}
	return f.value(v, height)
}

type formatter struct {
	html bool
}

func (f *formatter) escape(s string) string {
	if f.html {
		return html.EscapeString(s)
	}
	return s
}

func (f *formatter) value(v kval.Value, height int) (string, error) {
	switch {
	case v.IsError():
		msg, _ := v.ErrorMsg()
		return f.escape("'" + msg), nil
	case v.IsNil():
		return "", nil
	case v.IsAtom():
		return f.atom(v)
	case v.Tag() == kval.XT:
		return f.table(v, height)
	case v.Tag() == kval.XD && v.IsKeyedTable():
		return f.keyedTable(v, height)
	case v.Tag() == kval.XD || v.Tag() == kval.SD:
		return f.dict(v, height)
	default:
		return f.vector(v, height)
	}
}

func (f *formatter) atom(v kval.Value) (string, error) {
	s, err := Scalar(v)
	if err != nil {
		return "", err
	}
	return f.escape(s), nil
}

func (f *formatter) vector(v kval.Value, height int) (string, error) {
	n, err := v.Len()
	if err != nil {
		return "", err
	}
	cells, err := cellsOf(v, n, height)
	if err != nil {
		return "", err
	}
	for i, c := range cells {
		cells[i] = f.escape(c)
	}
	if f.html {
		return "<span>" + strings.Join(cells, " ") + "</span>", nil
	}
	return strings.Join(cells, " "), nil
}

func (f *formatter) dict(v kval.Value, height int) (string, error) {
	keys, err := v.DictKeys()
	if err != nil {
		return "", err
	}
	values, err := v.DictValues()
	if err != nil {
		return "", err
	}
	n, err := keys.Len()
	if err != nil {
		return "", err
	}
	keyCells, err := cellsOf(keys, n, height)
	if err != nil {
		return "", err
	}
	valCells, err := cellsOf(values, n, height)
	if err != nil {
		return "", err
	}

	if f.html {
		var b strings.Builder
		b.WriteString("<table>")
		for i := range keyCells {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td></tr>", f.escape(keyCells[i]), f.escape(valCells[i]))
		}
		b.WriteString("</table>")
		return b.String(), nil
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 2, 2, 1, ' ', 0)
	for i := range keyCells {
		fmt.Fprintf(tw, "%s\t| %s\n", keyCells[i], valCells[i])
	}
	tw.Flush()
	return strings.TrimRight(b.String(), "\n"), nil
}

func (f *formatter) table(v kval.Value, height int) (string, error) {
	names, err := v.ColumnNames()
	if err != nil {
		return "", err
	}
	rows, err := v.Len()
	if err != nil {
		return "", err
	}
	cols := make([][]string, len(names))
	for i, name := range names {
		col, err := v.Column(name)
		if err != nil {
			return "", err
		}
		cells, err := cellsOf(col, rows, -1) // elision applied at row level below
		if err != nil {
			return "", err
		}
		cols[i] = cells
	}

	if f.html {
		var b strings.Builder
		b.WriteString("<table><tr>")
		for _, n := range names {
			fmt.Fprintf(&b, "<th>%s</th>", f.escape(n))
		}
		b.WriteString("</tr>")
		eachRow(rows, height, func(i int, ellipsis bool) {
			b.WriteString("<tr>")
			for c := range cols {
				if ellipsis {
					b.WriteString("<td>...</td>")
				} else {
					fmt.Fprintf(&b, "<td>%s</td>", f.escape(cols[c][i]))
				}
			}
			b.WriteString("</tr>")
		})
		b.WriteString("</table>")
		return b.String(), nil
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 2, 2, 1, ' ', 0)
	fmt.Fprintln(tw, strings.Join(names, "\t"))
	seps := make([]string, len(names))
	for i, n := range names {
		seps[i] = strings.Repeat("-", len(n))
	}
	fmt.Fprintln(tw, strings.Join(seps, "\t"))
	eachRow(rows, height, func(i int, ellipsis bool) {
		if ellipsis {
			fmt.Fprintln(tw, "...")
			return
		}
		cells := make([]string, len(cols))
		for c := range cols {
			cells[c] = cols[c][i]
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	})
	tw.Flush()
	return strings.TrimRight(b.String(), "\n"), nil
}

func (f *formatter) keyedTable(v kval.Value, height int) (string, error) {
	keys, err := v.DictKeys()
	if err != nil {
		return "", err
	}
	values, err := v.DictValues()
	if err != nil {
		return "", err
	}
	left, err := f.table(keys, height)
	if err != nil {
		return "", err
	}
	right, err := f.table(values, height)
	if err != nil {
		return "", err
	}
	if f.html {
		return "<div>" + left + right + "</div>", nil
	}
	return left + "\n|\n" + right, nil
}

// eachRow invokes fn(i, false) for rows to display in order, and
// fn(-1, true) once in place of the elided middle if rows exceeds
// height (§4.5).
func eachRow(rows, height int, fn func(i int, ellipsis bool)) {
	if height <= 0 || rows <= height {
		for i := 0; i < rows; i++ {
			fn(i, false)
		}
		return
	}
	head := height / 2
	tail := height - head
	for i := 0; i < head; i++ {
		fn(i, false)
	}
	fn(-1, true)
	for i := rows - tail; i < rows; i++ {
		fn(i, false)
	}
}

// cellsOf renders each element of a length-n vector/list as a cell
// string, applying the same head/.../tail elision as eachRow when
// height > 0.
func cellsOf(v kval.Value, n, height int) ([]string, error) {
	out := make([]string, 0, n)
	err := forEachCell(v, n, height, func(s string) {
		out = append(out, s)
	})
	return out, err
}

func forEachCell(v kval.Value, n, height int, emit func(string)) error {
	var cellErr error
	eachRow(n, height, func(i int, ellipsis bool) {
		if cellErr != nil {
			return
		}
		if ellipsis {
			emit("...")
			return
		}
		elem, err := kval.Index(v, i)
		if err != nil {
			cellErr = err
			return
		}
		s, err := Scalar(elem)
		if err != nil {
			cellErr = err
			return
		}
		emit(s)
	})
	return cellErr
}

// Scalar renders a single atom per §4.5: temporal atoms in q-native
// textual form, null sentinels as "", infinities as "0W"/"-0W".
func Scalar(v kval.Value) (string, error) {
	switch v.Tag() {
	case -kval.KB:
		b, err := v.AB()
		if err != nil {
			return "", err
		}
		if b {
			return "1b", nil
		}
		return "0b", nil
	case -kval.UU:
		g, err := v.AUU()
		if err != nil {
			return "", err
		}
		return g.String(), nil
	case -kval.KG:
		g, err := v.AG()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("0x%02x", g), nil
	case -kval.KH:
		h, err := v.AH()
		if err != nil {
			return "", err
		}
		return formatInt(int64(h), int64(math.MinInt16), int64(math.MaxInt16)), nil
	case -kval.KI:
		i, err := v.AI()
		if err != nil {
			return "", err
		}
		return formatInt(int64(i), math.MinInt32, math.MaxInt32), nil
	case -kval.KJ:
		j, err := v.AJ()
		if err != nil {
			return "", err
		}
		return formatInt(j, math.MinInt64, math.MaxInt64), nil
	case -kval.KE:
		e, err := v.AE()
		if err != nil {
			return "", err
		}
		return formatFloat(float64(e)), nil
	case -kval.KF:
		fl, err := v.AF()
		if err != nil {
			return "", err
		}
		return formatFloat(fl), nil
	case -kval.KC:
		c, err := v.AC()
		if err != nil {
			return "", err
		}
		return string(rune(c)), nil
	case -kval.KS:
		s, err := v.AS()
		if err != nil {
			return "", err
		}
		return "`" + s, nil
	case -kval.KP:
		p, err := v.AP()
		if err != nil {
			return "", err
		}
		return formatTimestamp(p), nil
	case -kval.KM:
		m, err := v.AM()
		if err != nil {
			return "", err
		}
		return formatMonth(m), nil
	case -kval.KD:
		d, err := v.AD()
		if err != nil {
			return "", err
		}
		return formatDate(d), nil
	case -kval.KZ:
		z, err := v.AZ()
		if err != nil {
			return "", err
		}
		return formatDatetime(z), nil
	case -kval.KN:
		nn, err := v.AN()
		if err != nil {
			return "", err
		}
		return formatTimespan(nn), nil
	case -kval.KU:
		u, err := v.AU()
		if err != nil {
			return "", err
		}
		if n, ok := formatIntNullOrInf(int64(u), math.MinInt32, math.MaxInt32); ok {
			return n, nil
		}
		return formatHMS(int64(u)*60, "%02d:%02d"), nil
	case -kval.KV:
		sec, err := v.AV()
		if err != nil {
			return "", err
		}
		if n, ok := formatIntNullOrInf(int64(sec), math.MinInt32, math.MaxInt32); ok {
			return n, nil
		}
		return formatHMS(int64(sec), "%02d:%02d:%02d"), nil
	case -kval.KT:
		tm, err := v.AT()
		if err != nil {
			return "", err
		}
		return formatTime(tm), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func formatInt(v, null, inf int64) string {
	if s, ok := formatIntNullOrInf(v, null, inf); ok {
		return s
	}
	return strconv.FormatInt(v, 10)
}

// formatIntNullOrInf reports the rendered sentinel and true if v is the
// null, +infinity, or -infinity value for a width whose null sentinel
// is the minimum representable value (kdb+'s convention across all
// signed integer-backed atom types).
func formatIntNullOrInf(v, null, inf int64) (string, bool) {
	switch v {
	case null:
		return "", true
	case inf:
		return "0W", true
	case null + 1:
		return "-0W", true
	default:
		return "", false
	}
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "0W"
	case math.IsInf(v, -1):
		return "-0W"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

func formatMonth(m kval.Month) string {
	if int32(m) == math.MinInt32 {
		return ""
	}
	if int32(m) == math.MaxInt32 {
		return "0W"
	}
	y, mo := divMonth(int32(m))
	return fmt.Sprintf("%04d.%02dm", y, mo)
}

func divMonth(m int32) (year, month int) {
	total := 2000*12 + int(m)
	year = total / 12
	month = total%12 + 1
	if month <= 0 {
		month += 12
		year--
	}
	return year, month
}

func formatDate(d kval.Date) string {
	if int32(d) == math.MinInt32 {
		return ""
	}
	if int32(d) == math.MaxInt32 {
		return "0W"
	}
	y, m, day := civilFromDays(int64(d))
	return fmt.Sprintf("%04d.%02d.%02d", y, m, day)
}

func formatTimestamp(p kval.Timestamp) string {
	if int64(p) == math.MinInt64 {
		return ""
	}
	if int64(p) == math.MaxInt64 {
		return "0W"
	}
	ns := int64(p)
	days := ns / int64(24*3600*1e9)
	rem := ns % int64(24*3600*1e9)
	if rem < 0 {
		rem += int64(24 * 3600 * 1e9)
		days--
	}
	y, m, d := civilFromDays(days)
	h := rem / int64(3600*1e9)
	rem %= int64(3600 * 1e9)
	mi := rem / int64(60*1e9)
	rem %= int64(60 * 1e9)
	sec := rem / int64(1e9)
	nanos := rem % int64(1e9)
	return fmt.Sprintf("%04d.%02d.%02dD%02d:%02d:%02d.%09d", y, m, d, h, mi, sec, nanos)
}

func formatDatetime(z kval.Datetime) string {
	f := float64(z)
	if math.IsNaN(f) {
		return ""
	}
	days := int64(math.Floor(f))
	frac := f - math.Floor(f)
	y, m, d := civilFromDays(days)
	totalMs := int64(math.Round(frac * 24 * 3600 * 1000))
	h := totalMs / (3600 * 1000)
	totalMs %= 3600 * 1000
	mi := totalMs / (60 * 1000)
	totalMs %= 60 * 1000
	sec := totalMs / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%04d.%02d.%02dT%02d:%02d:%02d.%03d", y, m, d, h, mi, sec, ms)
}

func formatTimespan(n kval.Timespan) string {
	if int64(n) == math.MinInt64 {
		return ""
	}
	if int64(n) == math.MaxInt64 {
		return "0W"
	}
	ns := int64(n)
	sign := ""
	if ns < 0 {
		sign = "-"
		ns = -ns
	}
	days := ns / int64(24*3600*1e9)
	rem := ns % int64(24*3600*1e9)
	h := rem / int64(3600*1e9)
	rem %= int64(3600 * 1e9)
	mi := rem / int64(60*1e9)
	rem %= int64(60 * 1e9)
	sec := rem / int64(1e9)
	nanos := rem % int64(1e9)
	return fmt.Sprintf("%s%dD%02d:%02d:%02d.%09d", sign, days, h, mi, sec, nanos)
}

func formatTime(t kval.Time) string {
	if int32(t) == math.MinInt32 {
		return ""
	}
	if int32(t) == math.MaxInt32 {
		return "0W"
	}
	ms := int64(t)
	h := ms / 3600000
	ms %= 3600000
	mi := ms / 60000
	ms %= 60000
	sec := ms / 1000
	msRem := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, mi, sec, msRem)
}

func formatHMS(totalSeconds int64, layout string) string {
	h := totalSeconds / 3600
	totalSeconds %= 3600
	mi := totalSeconds / 60
	sec := totalSeconds % 60
	if strings.Count(layout, "%02d") == 2 {
		return fmt.Sprintf(layout, h, mi)
	}
	return fmt.Sprintf(layout, h, mi, sec)
}

// civilFromDays converts days since 2000.01.01 to a (year, month, day)
// civil date, via Howard Hinnant's days_from_civil algorithm run in
// reverse against the Unix epoch, then shifted by the 2000.01.01 offset.
func civilFromDays(daysSinceY2K int64) (year int, month int, day int) {
	z := daysSinceY2K + daysFromUnixEpochToY2K + 719468
	era := z / 146097
	if z < 0 {
		era = (z - 146096) / 146097
	}
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y := yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	d := doy - (153*mp+2)/5 + 1
	m := mp + 3
	if mp >= 10 {
		m = mp - 9
	} else {
		y++
	}
	return int(y), int(m), int(d)
}
