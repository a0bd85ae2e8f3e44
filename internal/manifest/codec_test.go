package manifest

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/empaphy/composer-yaml/internal/errors"
)

const testdataDir = "testdata"

func testPath(name string) string {
	return filepath.Join(testdataDir, name)
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(testPath(name))
	if err != nil {
		t.Fatalf("reading fixture %s: %v", name, err)
	}
	return data
}

type entry struct {
	Key   string
	Value any
}

// mapEntries lets cmp see into *Map, including its key order.
var mapEntries = cmp.Transformer("Entries", func(m *Map) []entry {
	if m == nil {
		return nil
	}
	out := make([]entry, 0, m.Len())
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		out = append(out, entry{Key: k, Value: v})
	}
	return out
})

func TestDecode_FixturesAgree(t *testing.T) {
	fromJSON, err := DecodeJSON(readFixture(t, "composer.json"))
	if err != nil {
		t.Fatalf("DecodeJSON error: %v", err)
	}
	fromYAML, err := DecodeYAML(readFixture(t, "composer.yaml"))
	if err != nil {
		t.Fatalf("DecodeYAML error: %v", err)
	}

	if diff := cmp.Diff(fromJSON, fromYAML, mapEntries); diff != "" {
		t.Errorf("decoded fixtures differ (-json +yaml):\n%s", diff)
	}
	if !Equal(fromJSON, fromYAML) {
		t.Error("Equal should report the fixtures as equal")
	}
}

func TestDecodeJSON_KeepsKeyOrder(t *testing.T) {
	v, err := DecodeJSON([]byte(`{"zeta": 1, "alpha": 2, "mid": 3}`))
	if err != nil {
		t.Fatalf("DecodeJSON error: %v", err)
	}
	m, ok := v.(*Map)
	if !ok {
		t.Fatalf("expected *Map, got %T", v)
	}
	if diff := cmp.Diff([]string{"zeta", "alpha", "mid"}, m.Keys()); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeJSON_Numbers(t *testing.T) {
	v, err := DecodeJSON([]byte(`{"int": 300, "neg": -2, "float": 1.5, "exp": 1e3, "huge": 100000000000000000000}`))
	if err != nil {
		t.Fatalf("DecodeJSON error: %v", err)
	}
	want := MapOf(
		"int", int64(300),
		"neg", int64(-2),
		"float", 1.5,
		"exp", float64(1000),
		"huge", float64(1e20),
	)
	if diff := cmp.Diff(want, v, mapEntries); diff != "" {
		t.Errorf("numbers mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_NoContent(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  []byte
	}{
		{"yaml nil", FormatYAML, nil},
		{"yaml empty", FormatYAML, []byte("")},
		{"yaml whitespace", FormatYAML, []byte("  \n\t\n")},
		{"yaml comment only", FormatYAML, []byte("# nothing here\n")},
		{"json nil", FormatJSON, nil},
		{"json whitespace", FormatJSON, []byte("\n  \n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode(tt.format, tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !IsNoContent(v) {
				t.Fatalf("got %#v, want NoContent", v)
			}
			if _, isMap := v.(*Map); isMap {
				t.Error("NoContent must not be an empty mapping")
			}
		})
	}
}

func TestDecodeYAML_ExplicitNull(t *testing.T) {
	v, err := DecodeYAML([]byte("~\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != nil {
		t.Errorf("got %#v, want nil", v)
	}
	if IsNoContent(v) {
		t.Error("an explicit null document is not NoContent")
	}
}

func TestDecode_ParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  []byte
	}{
		{"yaml bad indentation", FormatYAML, readFixture(t, "invalid-syntax.yaml")},
		{"json trailing comma", FormatJSON, readFixture(t, "invalid-syntax.json")},
		{"json trailing value", FormatJSON, []byte(`{"a": 1} {"b": 2}`)},
		{"json truncated", FormatJSON, []byte(`{"a": [1, 2`)},
		{"yaml self alias", FormatYAML, []byte("a: &x\n  b: *x\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.format, tt.input)
			if err == nil {
				t.Fatal("expected parse error, got nil")
			}
			if !errors.Is(err, errors.ErrCodeParse) {
				t.Errorf("code = %q, want %q", errors.GetCode(err), errors.ErrCodeParse)
			}
		})
	}
}

func TestDecodeYAML_MergeKeys(t *testing.T) {
	v, err := DecodeYAML(readFixture(t, "merge.yaml"))
	if err != nil {
		t.Fatalf("DecodeYAML error: %v", err)
	}
	m := v.(*Map)
	config, _ := m.Get("config")

	want := MapOf("sort-packages", true, "process-timeout", int64(600))
	if !Equal(want, config) {
		t.Errorf("config = %s, want explicit key to override merged one", mustJSON(t, config))
	}
}

func TestDecodeYAML_CustomTagKeepsValue(t *testing.T) {
	v, err := DecodeYAML([]byte("path: !env HOME\n"))
	if err != nil {
		t.Fatalf("DecodeYAML error: %v", err)
	}
	got, _ := v.(*Map).Get("path")
	if got != "HOME" {
		t.Errorf("path = %#v, want %q", got, "HOME")
	}
}

func TestEncodeYAML_QuotesMergeKey(t *testing.T) {
	data, err := EncodeYAML(MapOf("<<", "m"), DefaultYAMLOptions())
	if err != nil {
		t.Fatalf("EncodeYAML error: %v", err)
	}
	if got, want := string(data), "\"<<\": m\n"; got != want {
		t.Errorf("EncodeYAML = %q, want %q", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value Value
	}{
		{"flat", MapOf("foo", "bar")},
		{"scalars", MapOf("t", true, "f", false, "n", nil, "i", int64(42), "x", 2.5, "neg", int64(-7))},
		{"ambiguous strings", MapOf("version", "1.0", "flag", "true", "num", "123", "empty", "", "null", "null", "tilde", "~")},
		{"special characters", MapOf("ns", `Vendor\Package\`, "url", "https://example.com/a?b=c#d", "colon", "a: b", "hash", "# not a comment", "utf8", "café ☕")},
		{"multiline", MapOf("script", "line one\nline two\n")},
		{"nested", MapOf(
			"require", MapOf("php", ">=7.4", "ext-json", "*"),
			"autoload", MapOf("psr-4", MapOf(`App\`, "src/"), "files", []any{"a.php", "b.php"}),
			"scripts", MapOf("test", []any{"phpunit", MapOf("deep", []any{int64(1), []any{int64(2)}})}),
		)},
		{"empty containers", MapOf("list", []any{}, "map", NewMap())},
		{"numeric keys", MapOf("1", "one", "2.5", "two and a half")},
		{"top-level sequence", []any{"a", int64(1), MapOf("b", nil)}},
		{"integral float", MapOf("timeout", float64(30))},
		{"merge key literal", MapOf("<<", "m", "extra", MapOf("<<", MapOf("x", int64(1))))},
		{"non-string keys", MapOf("true", "t", "null", "n", "~", "tilde", "", "empty", "0x1F", "hex")},
		{"merge key in flow", MapOf("a", MapOf("b", MapOf("<<", "deep")))},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/yaml", func(t *testing.T) {
			data, err := EncodeYAML(tt.value, DefaultYAMLOptions())
			if err != nil {
				t.Fatalf("EncodeYAML error: %v", err)
			}
			got, err := DecodeYAML(data)
			if err != nil {
				t.Fatalf("DecodeYAML error: %v\n%s", err, data)
			}
			if !Equal(tt.value, got) {
				t.Errorf("round trip mismatch:\n%s", cmp.Diff(tt.value, got, mapEntries))
			}
		})
		t.Run(tt.name+"/json", func(t *testing.T) {
			data, err := EncodeJSON(tt.value, DefaultJSONOptions())
			if err != nil {
				t.Fatalf("EncodeJSON error: %v", err)
			}
			got, err := DecodeJSON(data)
			if err != nil {
				t.Fatalf("DecodeJSON error: %v\n%s", err, data)
			}
			if !Equal(tt.value, got) {
				t.Errorf("round trip mismatch:\n%s", cmp.Diff(tt.value, got, mapEntries))
			}
		})
	}
}

func TestRoundTrip_PreservesKeyOrder(t *testing.T) {
	original := MapOf("name", "a/b", "require", MapOf("zeta/z", "*", "alpha/a", "*"), "autoload", NewMap())

	for _, format := range []Format{FormatYAML, FormatJSON} {
		t.Run(format.String(), func(t *testing.T) {
			data, err := Encode(format, original, DefaultYAMLOptions(), DefaultJSONOptions())
			if err != nil {
				t.Fatalf("Encode error: %v", err)
			}
			got, err := Decode(format, data)
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if diff := cmp.Diff(original, got, mapEntries); diff != "" {
				t.Errorf("order not preserved (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeYAML_Simple(t *testing.T) {
	data, err := EncodeYAML(MapOf("foo", "bar"), DefaultYAMLOptions())
	if err != nil {
		t.Fatalf("EncodeYAML error: %v", err)
	}
	if string(data) != "foo: bar\n" {
		t.Errorf("EncodeYAML = %q, want %q", data, "foo: bar\n")
	}
}

func TestEncodeYAML_InlineDepth(t *testing.T) {
	v := MapOf("autoload", MapOf("psr-4", MapOf(`App\`, "src/")))

	inline, err := EncodeYAML(v, YAMLOptions{Indent: 4, Inline: 2})
	if err != nil {
		t.Fatalf("EncodeYAML error: %v", err)
	}
	if !strings.Contains(string(inline), "{") {
		t.Errorf("expected flow style at depth 2:\n%s", inline)
	}
	if !strings.HasPrefix(string(inline), "autoload:\n    psr-4: ") {
		t.Errorf("expected 4-space block indentation above the inline level:\n%s", inline)
	}

	block, err := EncodeYAML(v, YAMLOptions{Indent: 2})
	if err != nil {
		t.Fatalf("EncodeYAML error: %v", err)
	}
	if strings.Contains(string(block), "{") {
		t.Errorf("expected block style everywhere with Inline 0:\n%s", block)
	}
}

func TestEncodeJSON_Layout(t *testing.T) {
	v := MapOf(
		"name", "vendor/pkg",
		"require", MapOf("php", ">=7.4 <8.0"),
		"keywords", []any{},
		"extra", NewMap(),
		"authors", []any{MapOf("name", "Zoë & co")},
	)
	want := `{
    "name": "vendor/pkg",
    "require": {
        "php": ">=7.4 <8.0"
    },
    "keywords": [],
    "extra": {},
    "authors": [
        {
            "name": "Zoë & co"
        }
    ]
}
`
	data, err := EncodeJSON(v, DefaultJSONOptions())
	if err != nil {
		t.Fatalf("EncodeJSON error: %v", err)
	}
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("EncodeJSON layout mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeJSON_RejectsNonFinite(t *testing.T) {
	_, err := EncodeJSON(MapOf("x", math.Inf(1)), DefaultJSONOptions())
	if !errors.Is(err, errors.ErrCodeInvalidManifest) {
		t.Errorf("error = %v, want INVALID_MANIFEST", err)
	}
}

func TestEncode_NativeGoValues(t *testing.T) {
	v := map[string]any{"b": 2, "a": []string{"x"}}
	data, err := EncodeJSON(v, JSONOptions{Indent: 2})
	if err != nil {
		t.Fatalf("EncodeJSON error: %v", err)
	}
	want := "{\n  \"a\": [\n    \"x\"\n  ],\n  \"b\": 2\n}\n"
	if string(data) != want {
		t.Errorf("EncodeJSON = %q, want %q", data, want)
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"composer.yaml", FormatYAML},
		{"dir/Composer.YML", FormatYAML},
		{"composer.json", FormatJSON},
		{"composer", FormatJSON},
		{"https://example.com/composer.yaml", FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := FormatFor(tt.path); got != tt.want {
				t.Errorf("FormatFor(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func mustJSON(t *testing.T, v Value) string {
	t.Helper()
	data, err := EncodeJSON(v, DefaultJSONOptions())
	if err != nil {
		t.Fatalf("EncodeJSON error: %v", err)
	}
	return string(data)
}
