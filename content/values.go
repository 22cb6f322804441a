package content

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of a Date in forms, JSON and the database.
const DateLayout = "2006-01-02"

// Date is a calendar day. It binds from "2006-01-02" form values, which is
// what <input type="date"> submits.
type Date struct {
	time.Time
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses s in DateLayout. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// UnmarshalParam implements echo.BindUnmarshaler.
func (d *Date) UnmarshalParam(param string) error {
	v, err := ParseDate(param)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// UnmarshalText shadows time.Time's RFC 3339 text decoding so YAML
// fixtures can use plain dates.
func (d *Date) UnmarshalText(b []byte) error {
	return d.UnmarshalParam(string(b))
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.UnmarshalParam(s)
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case string:
		return d.UnmarshalParam(v)
	case []byte:
		return d.UnmarshalParam(string(v))
	case time.Time:
		*d = DateOf(v)
		return nil
	}
	return fmt.Errorf("content: cannot scan %T into Date", src)
}

// List is a comma separated list of short strings (tags, gallery URLs).
// It is stored as ",a,b," so single entries can be matched with instr().
type List []string

// ParseList splits s on commas, trimming blanks.
func ParseList(s string) List {
	var out List
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (l List) String() string {
	return strings.Join(l, ", ")
}

// Contains reports whether l holds v, ignoring case.
func (l List) Contains(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, item := range l {
		if strings.ToLower(item) == v {
			return true
		}
	}
	return false
}

// UnmarshalParam implements echo.BindUnmarshaler.
func (l *List) UnmarshalParam(param string) error {
	*l = ParseList(param)
	return nil
}

// Value implements driver.Valuer.
func (l List) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "", nil
	}
	return "," + strings.Join(l, ",") + ",", nil
}

// Scan implements sql.Scanner.
func (l *List) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
	case string:
		*l = ParseList(v)
	case []byte:
		*l = ParseList(string(v))
	default:
		return fmt.Errorf("content: cannot scan %T into List", src)
	}
	return nil
}

func lowerList(l List) List {
	seen := make(map[string]struct{}, len(l))
	var out List
	for _, v := range l {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// timeLayout keeps every fraction digit so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
