package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-dispatch-cache/internal/models"
)

func sourceContext(source string) *models.RequestContext {
	rc := models.NewRequestContext(models.OriginSource, nil)
	rc.Set(models.ExtCommand, map[string]any{"source": source, "limit": float64(10)})
	return rc
}

func TestEqual(t *testing.T) {
	p := Equal("command.source", "demo")

	assert.True(t, p.Check(sourceContext("demo")))
	assert.False(t, p.Check(sourceContext("other")))
}

func TestEqual_NumbersCompareByValue(t *testing.T) {
	assert.True(t, Equal("command.limit", 10).Check(sourceContext("demo")))
	assert.False(t, Equal("command.limit", "10").Check(sourceContext("demo")))
}

func TestIn(t *testing.T) {
	p := In("command.source", "a", "demo", "b")

	assert.True(t, p.Check(sourceContext("demo")))
	assert.False(t, p.Check(sourceContext("c")))
}

func TestRangeBounds(t *testing.T) {
	rc := sourceContext("demo")

	assert.True(t, GreaterThan("command.limit", 9).Check(rc))
	assert.False(t, GreaterThan("command.limit", 10).Check(rc))
	assert.True(t, GreaterOrEqual("command.limit", 10).Check(rc))
	assert.True(t, LessOrEqual("command.limit", 10).Check(rc))
	assert.False(t, LessThan("command.limit", 10).Check(rc))
	assert.True(t, Between("command.limit", 9, 11).Check(rc))
	assert.False(t, Between("command.limit", 10, 11).Check(rc), "interval is open")
	assert.False(t, GreaterThan("command.source", 0).Check(rc), "non-numeric value")
}

func TestMatches(t *testing.T) {
	p, err := Matches("command.source", "em")
	require.NoError(t, err)

	assert.True(t, p.Check(sourceContext("demo")))
	assert.False(t, p.Check(sourceContext("other")))

	num, err := Matches("command.limit", "^1")
	require.NoError(t, err)
	assert.True(t, num.Check(sourceContext("demo")), "values are stringified before matching")
}

func TestMatches_InvalidPattern(t *testing.T) {
	_, err := Matches("command.source", "(")
	assert.Error(t, err)
}

func TestFailClosed(t *testing.T) {
	rc := sourceContext("demo")

	tests := []struct {
		name string
		p    Predicate
	}{
		{"missing root", Equal("nothing.here", "x")},
		{"missing leaf", Equal("command.absent", "x")},
		{"descend into scalar", Equal("command.source.deeper", "x")},
		{"empty path", Equal("", "x")},
		{"panicking comparison", Field("command.source", func(any) bool { panic("boom") })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.False(t, tt.p.Check(rc))
			})
		})
	}

	assert.False(t, Equal("command.source", "demo").Check(nil))
}

func TestURL_WritesSegments(t *testing.T) {
	rc := models.NewRequestContext(models.OriginRestful, nil)
	rc.Set(models.ExtCommand, map[string]any{"path": "get"})

	assert.True(t, URL(":action").Check(rc))
	assert.Equal(t, map[string]string{"action": "get"}, rc.Segments())

	segment, err := rc.Lookup("url_segments.action")
	require.NoError(t, err)
	assert.Equal(t, "get", segment)
}

func TestURL_NoMatchLeavesContextUntouched(t *testing.T) {
	rc := models.NewRequestContext(models.OriginRestful, nil)
	rc.Set(models.ExtCommand, map[string]any{"path": "api/other"})

	assert.False(t, URL("api/data").Check(rc))
	assert.Nil(t, rc.Segments())
}

func TestURL_NonStringPath(t *testing.T) {
	rc := models.NewRequestContext(models.OriginRestful, nil)
	rc.Set(models.ExtCommand, map[string]any{"path": 12})

	assert.False(t, URL(":x").Check(rc))
}

func TestMessageAndOriginRoots(t *testing.T) {
	rc := models.NewRequestContext(models.OriginBus, map[string]any{
		"type":  "ping",
		"items": []any{"first", "second"},
	})

	assert.True(t, Equal("message.type", "ping").Check(rc))
	assert.True(t, Equal("payload.items.1", "second").Check(rc))
	assert.False(t, Equal("payload.items.5", "second").Check(rc))
	assert.True(t, Equal("origin", "bus").Check(rc))
}

func TestNotAndAll(t *testing.T) {
	rc := sourceContext("demo")

	assert.False(t, Not(Always()).Check(rc))
	assert.True(t, Not(Equal("command.absent", 1)).Check(rc))
	assert.True(t, All(rc, nil))
	assert.False(t, All(rc, []Predicate{Always(), Equal("command.source", "x")}))
}
