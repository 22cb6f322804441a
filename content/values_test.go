package content

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"Метални врати", "metalni-vrati"},
		{"Café & Bar", "cafe-bar"},
		{"  --Gates/Fences_2024.  ", "gates-fences-2024"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}
	assert.True(t, IsValidSlug("metal-gates"))
	assert.False(t, IsValidSlug("Metal Gates"))
	assert.False(t, IsValidSlug(""))
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.String())

	_, err = ParseDate("29.02.2024")
	assert.Error(t, err)

	zero, err := ParseDate("  ")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
	assert.Equal(t, "", zero.String())

	assert.Equal(t, "2024-05-10", DateOf(time.Date(2024, 5, 10, 23, 59, 0, 0, time.UTC)).String())

	b, err := json.Marshal(struct{ D Date }{d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"D":"2024-02-29"}`, string(b))

	var y struct {
		D Date `yaml:"d"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("d: 2024-03-01\n"), &y))
	assert.Equal(t, "2024-03-01", y.D.String())
}

func TestFormatTimeSortsAsText(t *testing.T) {
	base := time.Date(2024, 5, 10, 9, 0, 5, 0, time.UTC)
	whole := formatTime(base)
	half := formatTime(base.Add(500 * time.Millisecond))
	assert.Len(t, half, len(whole))
	assert.Less(t, whole, half)
	assert.Equal(t, base, parseTime(whole))
	assert.Equal(t, base.Add(500*time.Millisecond), parseTime(half))
	assert.Empty(t, formatTime(time.Time{}))
}

func TestList(t *testing.T) {
	l := ParseList(" steel, , Paint ,")
	assert.Equal(t, List{"steel", "Paint"}, l)
	assert.Equal(t, "steel, Paint", l.String())
	assert.True(t, l.Contains("PAINT"))
	assert.False(t, l.Contains("wood"))

	v, err := l.Value()
	require.NoError(t, err)
	assert.Equal(t, ",steel,Paint,", v)

	var scanned List
	require.NoError(t, scanned.Scan(",steel,Paint,"))
	assert.Equal(t, l, scanned)

	assert.Equal(t, List{"a", "b"}, lowerList(List{"A", "b", "a", " "}))
}

func TestPickFallsBack(t *testing.T) {
	assert.Equal(t, "en", pick(LangEN, "bg", "en"))
	assert.Equal(t, "bg", pick(LangEN, "bg", ""))
	assert.Equal(t, "bg", pick(LangBG, "bg", "en"))
	assert.Equal(t, "en", pick(LangBG, "", "en"))
	assert.Equal(t, "bg", pick("de", "bg", "en"))
}
