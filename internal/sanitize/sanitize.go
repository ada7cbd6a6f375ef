package sanitize

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fyrsmithlabs/debugredirect/internal/secrets"
)

const (
	// MaxStringLength is the longest string value kept, in bytes.
	MaxStringLength = 100

	// MaxArrayEntries is the number of array entries kept before the marker.
	MaxArrayEntries = 10

	// MaxDepth bounds recursion into nested arrays.
	MaxDepth = 3

	// TruncatedMarker is appended to cut strings and replaces dropped entries.
	TruncatedMarker = "... (truncated)"
)

// Sanitizer converts values to Value summaries. The zero value does not mask.
type Sanitizer struct {
	scrubber secrets.Scrubber
}

// New returns a Sanitizer that masks credentials in strings with scrubber.
// A nil or disabled scrubber leaves strings readable.
func New(scrubber secrets.Scrubber) *Sanitizer {
	return &Sanitizer{scrubber: scrubber}
}

// Masking reports whether credential masking is on.
func (s *Sanitizer) Masking() bool {
	return s != nil && s.scrubber != nil && s.scrubber.IsEnabled()
}

// SanitizeAll sanitizes each argument in order.
func (s *Sanitizer) SanitizeAll(args []interface{}) Values {
	out := make(Values, len(args))
	for i, arg := range args {
		out[i] = s.Sanitize(arg)
	}
	return out
}

// Sanitize classifies v and reduces it to a Value.
func (s *Sanitizer) Sanitize(v interface{}) Value {
	return s.value(reflect.ValueOf(v), 0)
}

// String masks (if enabled) and then truncates str. Masking runs first so a
// credential straddling the cut is still hidden.
func (s *Sanitizer) String(str string) string {
	if s.Masking() {
		str = s.scrubber.Scrub(str).Scrubbed
	}
	return Truncate(str)
}

// Params returns a copy of params with credential-named values replaced by
// the scrubber's redaction and remaining values passed through String. Without masking the map
// is copied unchanged.
func (s *Sanitizer) Params(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		switch {
		case !s.Masking():
			out[k] = v
		case s.scrubber.SensitiveKey(k):
			out[k] = s.scrubber.Redaction()
		default:
			out[k] = s.String(v)
		}
	}
	return out
}

// Truncate cuts str to at most MaxStringLength bytes on a rune boundary and
// appends TruncatedMarker when anything was dropped.
func Truncate(str string) string {
	if len(str) <= MaxStringLength {
		return str
	}
	cut := MaxStringLength
	for cut > 0 && !utf8.RuneStart(str[cut]) {
		cut--
	}
	return str[:cut] + TruncatedMarker
}

func (s *Sanitizer) value(rv reflect.Value, depth int) Value {
	if !rv.IsValid() {
		return Value{Kind: KindNull, Text: "null"}
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return Value{Kind: KindNull, Text: "null"}
		}
		return s.value(rv.Elem(), depth)

	case reflect.Ptr:
		if rv.IsNil() {
			return Value{Kind: KindNull, Text: "null"}
		}
		if rv.Elem().Kind() == reflect.Struct {
			return Value{
				Kind:     KindObject,
				Class:    TypeName(rv.Type()),
				ObjectID: IdentityToken(rv),
			}
		}
		return s.value(rv.Elem(), depth)

	case reflect.Struct:
		return Value{Kind: KindObject, Class: TypeName(rv.Type())}

	case reflect.Slice:
		if rv.IsNil() {
			return Value{Kind: KindNull, Text: "null"}
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return s.stringValue(string(rv.Bytes()))
		}
		return s.list(rv, depth)

	case reflect.Array:
		return s.list(rv, depth)

	case reflect.Map:
		if rv.IsNil() {
			return Value{Kind: KindNull, Text: "null"}
		}
		return s.mapping(rv, depth)

	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if rv.IsNil() {
			return Value{Kind: KindNull, Text: "null"}
		}
		return Value{Kind: KindResource, ResourceType: rv.Kind().String()}

	case reflect.String:
		return s.stringValue(rv.String())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Value{Kind: KindNumber, Number: rv.Int()}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Value{Kind: KindNumber, Number: rv.Uint()}

	case reflect.Float32, reflect.Float64:
		return Value{Kind: KindNumber, Number: rv.Float()}

	case reflect.Bool:
		return Value{Kind: KindBool, Text: strconv.FormatBool(rv.Bool())}

	default:
		return Value{Kind: KindOther, Text: rv.Type().String()}
	}
}

func (s *Sanitizer) stringValue(str string) Value {
	return Value{Kind: KindString, Length: len(str), Text: s.String(str)}
}

func (s *Sanitizer) list(rv reflect.Value, depth int) Value {
	n := rv.Len()
	out := Value{Kind: KindArray, Count: n}
	if depth >= MaxDepth {
		out.Summarized = true
		return out
	}

	keep := n
	if keep > MaxArrayEntries {
		keep = MaxArrayEntries
	}
	out.Items = make([]Value, 0, keep+1)
	for i := 0; i < keep; i++ {
		out.Items = append(out.Items, s.value(rv.Index(i), depth+1))
	}
	if n > MaxArrayEntries {
		out.Items = append(out.Items, marker())
	}
	return out
}

func (s *Sanitizer) mapping(rv reflect.Value, depth int) Value {
	n := rv.Len()
	out := Value{Kind: KindArray, Count: n}
	if depth >= MaxDepth {
		out.Summarized = true
		return out
	}

	entries := make([]mapEntry, 0, n)
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().Interface()
		entries = append(entries, mapEntry{key: fmt.Sprint(k), typ: fmt.Sprintf("%T", k), val: iter.Value()})
	}
	distinctKeys(entries)

	keep := n
	if keep > MaxArrayEntries {
		keep = MaxArrayEntries
	}
	out.Keys = make([]string, 0, keep+1)
	out.Items = make([]Value, 0, keep+1)
	for _, e := range entries[:keep] {
		out.Keys = append(out.Keys, e.key)
		out.Items = append(out.Items, s.value(e.val, depth+1))
	}
	if n > MaxArrayEntries {
		out.Keys = append(out.Keys, entries[keep].key)
		out.Items = append(out.Items, marker())
	}
	return out
}

type mapEntry struct {
	key string
	typ string
	val reflect.Value
}

// distinctKeys sorts entries by key and rewrites keys that print the same so
// no entry is lost when the map is rendered: colliding keys gain their type,
// as in int(1) and string(1), and any remaining duplicates a #n suffix.
func distinctKeys(entries []mapEntry) {
	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		seen[e.key]++
	}
	for i := range entries {
		if seen[entries[i].key] > 1 {
			entries[i].key = entries[i].typ + "(" + entries[i].key + ")"
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	count := make(map[string]int, len(entries))
	for i := range entries {
		count[entries[i].key]++
		if c := count[entries[i].key]; c > 1 {
			entries[i].key += " #" + strconv.Itoa(c)
		}
	}
}

func marker() Value {
	return Value{Kind: KindString, Length: len(TruncatedMarker), Text: TruncatedMarker}
}

func arraySummary(n int) string {
	return "array(" + strconv.Itoa(n) + ")"
}

// TypeName returns the package-qualified name of t, looking through pointers.
// Unnamed types fall back to their Go syntax.
func TypeName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	if pkg := t.PkgPath(); pkg != "" {
		return pkg + "." + t.Name()
	}
	return t.Name()
}

// IdentityToken returns a stable token for the object a pointer refers to.
// Non-pointer values have no identity and yield "".
func IdentityToken(rv reflect.Value) string {
	for rv.Kind() == reflect.Interface && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return ""
	}
	return fmt.Sprintf("%016x", rv.Pointer())
}

// ClassOf returns TypeName for the dynamic type of v, or "" for nil.
func ClassOf(v interface{}) string {
	if v == nil {
		return ""
	}
	return TypeName(reflect.TypeOf(v))
}

// IDOf returns IdentityToken for v.
func IDOf(v interface{}) string {
	return IdentityToken(reflect.ValueOf(v))
}

// HasPrefix reports whether class starts with any prefix in allow.
func HasPrefix(class string, allow []string) bool {
	for _, p := range allow {
		if strings.HasPrefix(class, p) {
			return true
		}
	}
	return false
}
