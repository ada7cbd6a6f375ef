package sanitize

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
	"unsafe"

	"github.com/fyrsmithlabs/debugredirect/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type cart struct {
	Items []string
}

func TestSanitize_Classification(t *testing.T) {
	s := New(secrets.Default())
	c := &cart{}
	ch := make(chan int)
	var nilMap map[string]int
	var nilPtr *cart

	tests := []struct {
		name string
		in   interface{}
		kind Kind
	}{
		{"nil", nil, KindNull},
		{"nil pointer", nilPtr, KindNull},
		{"nil map", nilMap, KindNull},
		{"pointer to struct", c, KindObject},
		{"struct value", cart{}, KindObject},
		{"error", errors.New("boom"), KindObject},
		{"slice", []int{1, 2}, KindArray},
		{"array", [2]string{"a", "b"}, KindArray},
		{"map", map[string]int{"a": 1}, KindArray},
		{"chan", ch, KindResource},
		{"func", func() {}, KindResource},
		{"unsafe pointer", unsafe.Pointer(c), KindResource},
		{"string", "hello", KindString},
		{"bytes", []byte("hello"), KindString},
		{"int", 42, KindNumber},
		{"uint", uint8(7), KindNumber},
		{"float", 1.5, KindNumber},
		{"bool", true, KindBool},
		{"complex", complex(1, 2), KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, s.Sanitize(tt.in).Kind)
		})
	}
}

func TestSanitize_Object(t *testing.T) {
	s := New(secrets.Default())
	c := &cart{}

	v := s.Sanitize(c)
	assert.Equal(t, "github.com/fyrsmithlabs/debugredirect/internal/sanitize.cart", v.Class)
	assert.NotEmpty(t, v.ObjectID)
	assert.Equal(t, v.ObjectID, s.Sanitize(c).ObjectID, "same object, same token")
	assert.NotEqual(t, v.ObjectID, s.Sanitize(&cart{}).ObjectID)

	assert.Empty(t, s.Sanitize(cart{}).ObjectID, "values have no identity")

	m := v.Interface().(map[string]interface{})
	assert.Equal(t, "object", m["type"])
	assert.Equal(t, v.Class, m["class"])
}

func TestSanitize_Scalars(t *testing.T) {
	s := New(secrets.Default())

	assert.Equal(t, int64(42), s.Sanitize(42).Interface())
	assert.Equal(t, uint64(7), s.Sanitize(uint8(7)).Interface())
	assert.Equal(t, 1.5, s.Sanitize(1.5).Interface())
	assert.Equal(t, "true", s.Sanitize(true).Interface())
	assert.Equal(t, "false", s.Sanitize(false).Interface())
	assert.Equal(t, "null", s.Sanitize(nil).Interface())
	assert.Equal(t, "complex128", s.Sanitize(complex(1, 2)).Interface())

	ptr := 5
	assert.Equal(t, int64(5), s.Sanitize(&ptr).Interface(), "pointers to scalars are followed")
}

func TestSanitize_Resource(t *testing.T) {
	v := New(secrets.Default()).Sanitize(make(chan struct{}))
	assert.Equal(t, map[string]interface{}{"type": "resource", "resource_type": "chan"}, v.Interface())
}

func TestSanitize_StringMasking(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"password=hunter2&x=1", "password=***&x=1"},
		{"PASSWORD=Hunter2", "PASSWORD=***"},
		{"Authorization: Basic dXNlcg==", "Authorization: ***"},
		{"Bearer eyJhbGciOi.payload", "Bearer ***"},
		{"api_key=k1&api-key=k2&apikey=k3", "api_key=***&api-key=***&apikey=***"},
		{"a=1&token=abc&b=2", "a=1&token=***&b=2"},
		{"secret=s3cr3t", "secret=***"},
		{"nothing to hide", "nothing to hide"},
	}

	s := New(secrets.Default())
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v := s.Sanitize(tt.in)
			assert.Equal(t, tt.want, v.Text)
			assert.Equal(t, len(tt.in), v.Length)
		})
	}
}

func TestSanitize_MaskingDisabled(t *testing.T) {
	v := New(nil).Sanitize("password=hunter2&x=1")
	assert.Equal(t, "password=hunter2&x=1", v.Text)

	off := New(secrets.Default().WithEnabled(false))
	assert.False(t, off.Masking())
	assert.Equal(t, "token=abc", off.String("token=abc"))
	assert.Equal(t, map[string]string{"password": "x"}, off.Params(map[string]string{"password": "x"}))

	var zero Sanitizer
	assert.False(t, zero.Masking())
}

func TestSanitize_CustomScrubberRules(t *testing.T) {
	cfg := secrets.DefaultConfig()
	cfg.Rules = append(cfg.Rules, secrets.Rule{ID: "session", Pattern: `sess_[a-z0-9]+`})
	cfg.SensitiveKeys = append(cfg.SensitiveKeys, "cookie")
	s := New(secrets.MustNew(cfg))

	assert.Equal(t, "id=*** password=***", s.Sanitize("id=sess_ab12 password=x").Text)
	assert.Equal(t, secrets.DefaultRedaction, s.Params(map[string]string{"session_cookie": "abc"})["session_cookie"])
}

func TestSanitize_Truncation(t *testing.T) {
	long := strings.Repeat("a", 250)

	for _, mask := range []bool{true, false} {
		v := New(secrets.Default().WithEnabled(mask)).Sanitize(long)
		assert.Equal(t, 250, v.Length)
		assert.True(t, strings.HasSuffix(v.Text, TruncatedMarker))
		assert.LessOrEqual(t, len(strings.TrimSuffix(v.Text, TruncatedMarker)), MaxStringLength)
	}

	exact := strings.Repeat("b", MaxStringLength)
	assert.Equal(t, exact, New(secrets.Default()).Sanitize(exact).Text)
}

func TestSanitize_TruncationKeepsRunes(t *testing.T) {
	long := "a" + strings.Repeat("é", 80) // 161 bytes, multi-byte runes straddle byte 100

	out := Truncate(long)
	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, TruncatedMarker))
}

func TestSanitize_MaskBeforeTruncate(t *testing.T) {
	in := strings.Repeat("x", 95) + "&token=abcdefghijklmnop"

	v := New(secrets.Default()).Sanitize(in)
	assert.NotContains(t, v.Text, "abcde")
	assert.Equal(t, len(in), v.Length)
}

func TestSanitize_ArrayCap(t *testing.T) {
	in := make([]int, 15)
	for i := range in {
		in[i] = i
	}

	v := New(secrets.Default()).Sanitize(in)
	assert.Equal(t, 15, v.Count)
	require.Len(t, v.Items, MaxArrayEntries+1)
	assert.Equal(t, TruncatedMarker, v.Items[MaxArrayEntries].Text)

	m := v.Interface().(map[string]interface{})
	contents := m["contents"].([]interface{})
	require.Len(t, contents, 11)
	assert.Equal(t, int64(0), contents[0])
	assert.Equal(t, TruncatedMarker, contents[10])
	assert.Equal(t, 15, m["count"])
}

func TestSanitize_ArrayAtCapHasNoMarker(t *testing.T) {
	v := New(secrets.Default()).Sanitize(make([]string, MaxArrayEntries))
	assert.Len(t, v.Items, MaxArrayEntries)
}

func TestSanitize_MapSortedAndCapped(t *testing.T) {
	in := map[string]int{}
	for _, k := range "abcdefghijklmno" {
		in[string(k)] = int(k)
	}

	v := New(secrets.Default()).Sanitize(in)
	assert.Equal(t, 15, v.Count)
	require.Len(t, v.Keys, 11)
	assert.Equal(t, "a", v.Keys[0])
	assert.Equal(t, "k", v.Keys[10])
	assert.Equal(t, TruncatedMarker, v.Items[10].Text)
}

func TestSanitize_MapKeysThatPrintAlike(t *testing.T) {
	in := map[interface{}]int{1: 1, "1": 2, "a": 3}

	v := New(secrets.Default()).Sanitize(in)
	assert.Equal(t, 3, v.Count)
	assert.Equal(t, []string{"a", "int(1)", "string(1)"}, v.Keys)

	contents := v.Interface().(map[string]interface{})["contents"].(map[string]interface{})
	assert.Len(t, contents, 3)
	assert.Equal(t, int64(1), contents["int(1)"])
	assert.Equal(t, int64(2), contents["string(1)"])
}

func TestDistinctKeys_SameTypeAndValue(t *testing.T) {
	entries := []mapEntry{{key: "NaN", typ: "float64"}, {key: "NaN", typ: "float64"}, {key: "b", typ: "string"}}

	distinctKeys(entries)
	assert.Equal(t, "b", entries[0].key)
	assert.Equal(t, "float64(NaN)", entries[1].key)
	assert.Equal(t, "float64(NaN) #2", entries[2].key)
}

func TestSanitize_NestedShapes(t *testing.T) {
	c := &cart{}
	in := []interface{}{
		"password=abc",
		c,
		[]int{1, 2, 3},
		[]interface{}{[]interface{}{[]int{1, 2}}},
		nil,
		true,
	}

	v := New(secrets.Default()).Sanitize(in)
	contents := v.Interface().(map[string]interface{})["contents"].([]interface{})

	assert.Equal(t, "password=***", contents[0])
	assert.Equal(t, "object(github.com/fyrsmithlabs/debugredirect/internal/sanitize.cart)", contents[1])
	assert.Equal(t, map[string]interface{}{"count": 3, "contents": []interface{}{int64(1), int64(2), int64(3)}}, contents[2])
	assert.Equal(t, "null", contents[4])
	assert.Equal(t, "true", contents[5])

	// depth 1 -> 2 -> 3: the innermost slice is beyond the cap.
	lvl1 := contents[3].(map[string]interface{})["contents"].([]interface{})
	lvl2 := lvl1[0].(map[string]interface{})["contents"].([]interface{})
	assert.Equal(t, "array(2)", lvl2[0])
}

func TestSanitize_Params(t *testing.T) {
	params := map[string]string{
		"password":  "hunter2",
		"api_key":   "k",
		"redirect":  "/x?token=abc",
		"productId": "42",
	}

	masked := New(secrets.Default()).Params(params)
	assert.Equal(t, secrets.DefaultRedaction, masked["password"])
	assert.Equal(t, secrets.DefaultRedaction, masked["api_key"])
	assert.Equal(t, "/x?token=***", masked["redirect"])
	assert.Equal(t, "42", masked["productId"])
	assert.Equal(t, "hunter2", params["password"], "input untouched")

	assert.Equal(t, params, New(nil).Params(params))
}

func TestValue_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(New(secrets.Default()).Sanitize("token=abc"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"string","length":9,"value":"token=***"}`, string(out))
}

func TestValues_MarshalLogArray(t *testing.T) {
	vals := New(secrets.Default()).SanitizeAll([]interface{}{"a", 1})

	enc := zapcore.NewMapObjectEncoder()
	require.NoError(t, enc.AddArray("args", vals))

	args := enc.Fields["args"].([]interface{})
	require.Len(t, args, 2)
	assert.Equal(t, int64(1), args[1])
}

func TestHasPrefix(t *testing.T) {
	allow := []string{"github.com/labstack/echo/v4.", "net/http.Request"}
	assert.True(t, HasPrefix("github.com/labstack/echo/v4.Response", allow))
	assert.True(t, HasPrefix("net/http.Request", allow))
	assert.False(t, HasPrefix("github.com/fyrsmithlabs/debugredirect/internal/redirect.Interceptor", allow))
	assert.Equal(t, "", ClassOf(nil))
	assert.Equal(t, "", IDOf(cart{}))
}
