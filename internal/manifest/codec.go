package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/empaphy/composer-yaml/internal/errors"
)

// Format identifies an on-disk manifest representation.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// FormatFor picks a format from the file extension. ".yaml" and ".yml"
// select YAML; everything else is treated as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// YAMLOptions controls YAML serialization.
type YAMLOptions struct {
	// Indent is the number of spaces per nesting level.
	Indent int
	// Inline is the nesting depth at which mappings and sequences switch to
	// flow style. Zero keeps block style at every depth.
	Inline int
}

// JSONOptions controls JSON serialization.
type JSONOptions struct {
	// Indent is the number of spaces per nesting level.
	Indent int
}

// DefaultYAMLOptions matches the layout of composer.yaml files generated by
// earlier releases: four-space indent, flow style from the third level down.
func DefaultYAMLOptions() YAMLOptions {
	return YAMLOptions{Indent: 4, Inline: 2}
}

// DefaultJSONOptions matches the host's own pretty printer.
func DefaultJSONOptions() JSONOptions {
	return JSONOptions{Indent: 4}
}

// Decode parses data in the given format.
func Decode(format Format, data []byte) (Value, error) {
	if format == FormatYAML {
		return DecodeYAML(data)
	}
	return DecodeJSON(data)
}

// Encode serializes v in the given format.
func Encode(format Format, v Value, yamlOpts YAMLOptions, jsonOpts JSONOptions) ([]byte, error) {
	if format == FormatYAML {
		return EncodeYAML(v, yamlOpts)
	}
	return EncodeJSON(v, jsonOpts)
}

// DecodeYAML parses a YAML document. Empty or comment-only input yields
// NoContent. Aliases are expanded, merge keys applied, and custom tags
// dropped in favour of the tagged value.
func DecodeYAML(data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return NoContent, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "invalid YAML")
	}
	if doc.Kind == 0 || (doc.Kind == yaml.DocumentNode && len(doc.Content) == 0) {
		return NoContent, nil
	}

	d := &yamlDecoder{active: make(map[*yaml.Node]bool)}
	v, err := d.node(&doc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "invalid YAML")
	}
	return v, nil
}

type yamlDecoder struct {
	active map[*yaml.Node]bool
}

func (d *yamlDecoder) node(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return d.node(n.Content[0])
	case yaml.AliasNode:
		if d.active[n.Alias] {
			return nil, fmt.Errorf("line %d: anchor %q references itself", n.Line, n.Value)
		}
		d.active[n.Alias] = true
		defer delete(d.active, n.Alias)
		return d.node(n.Alias)
	case yaml.ScalarNode:
		return scalar(n)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := d.node(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		return d.mapping(n)
	default:
		return nil, fmt.Errorf("line %d: unexpected node kind %d", n.Line, n.Kind)
	}
}

// mapping decodes a mapping node. Entries pulled in through "<<" merge keys
// never override keys the mapping sets itself.
func (d *yamlDecoder) mapping(n *yaml.Node) (*Map, error) {
	out := NewMap()
	explicit := make(map[string]bool)

	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valNode := n.Content[i], n.Content[i+1]

		if keyNode.Kind == yaml.ScalarNode && keyNode.ShortTag() == "!!merge" {
			if err := d.merge(out, explicit, valNode); err != nil {
				return nil, err
			}
			continue
		}

		k, err := d.node(keyNode)
		if err != nil {
			return nil, err
		}
		v, err := d.node(valNode)
		if err != nil {
			return nil, err
		}
		key := keyString(k)
		explicit[key] = true
		out.Set(key, v)
	}
	return out, nil
}

func (d *yamlDecoder) merge(out *Map, explicit map[string]bool, src *yaml.Node) error {
	v, err := d.node(src)
	if err != nil {
		return err
	}

	var sources []*Map
	switch val := v.(type) {
	case *Map:
		sources = []*Map{val}
	case []any:
		for _, item := range val {
			m, ok := item.(*Map)
			if !ok {
				return fmt.Errorf("line %d: merge sequence must contain only mappings", src.Line)
			}
			sources = append(sources, m)
		}
	default:
		return fmt.Errorf("line %d: merge value must be a mapping or a sequence of mappings", src.Line)
	}

	for _, m := range sources {
		for _, k := range m.keys {
			if explicit[k] {
				continue
			}
			if _, seen := out.Get(k); seen {
				continue
			}
			out.Set(k, m.values[k])
		}
	}
	return nil
}

func scalar(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return b, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return i, nil
		}
		var u uint64
		if err := n.Decode(&u); err == nil {
			return float64(u), nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return f, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return f, nil
	default:
		// !!str, !!timestamp, !!binary and custom tags keep their literal text.
		return n.Value, nil
	}
}

func keyString(k Value) string {
	switch key := k.(type) {
	case nil:
		return ""
	case string:
		return key
	case int64:
		return strconv.FormatInt(key, 10)
	case float64:
		return strconv.FormatFloat(key, 'f', -1, 64)
	default:
		return fmt.Sprint(key)
	}
}

// DecodeJSON parses a JSON document, keeping object key order. Empty input
// yields NoContent; data after the first value is a parse error.
func DecodeJSON(data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return NoContent, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := jsonValue(dec)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "invalid JSON")
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("unexpected data after top-level value at offset %d", dec.InputOffset())
		}
		return nil, errors.Wrap(errors.ErrCodeParse, err, "invalid JSON")
	}
	return v, nil
}

func jsonValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key at offset %d is not a string", dec.InputOffset())
				}
				v, err := jsonValue(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			list := make([]any, 0)
			for dec.More() {
				v, err := jsonValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q at offset %d", t, dec.InputOffset())
		}
	case json.Number:
		return jsonNumber(t)
	case string, bool, nil:
		return t, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

func jsonNumber(n json.Number) (Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return f, nil
}

// EncodeYAML serializes v as a YAML document.
func EncodeYAML(v Value, opts YAMLOptions) ([]byte, error) {
	norm, err := normalize(v)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "encoding YAML")
	}

	root, err := yamlNode(norm, 0, opts.Inline)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "encoding YAML")
	}

	indent := opts.Indent
	if indent <= 0 {
		indent = DefaultYAMLOptions().Indent
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(root); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "encoding YAML")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "encoding YAML")
	}
	return buf.Bytes(), nil
}

func yamlNode(v Value, depth, inline int) (*yaml.Node, error) {
	var style yaml.Style
	if inline > 0 && depth >= inline {
		style = yaml.FlowStyle
	}

	switch val := v.(type) {
	case nil, noContent:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(val)}, nil
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(val, 10)}, nil
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: yamlFloat(val)}, nil
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: val}, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: style}
		for _, item := range val {
			child, err := yamlNode(item, depth+1, inline)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case *Map:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Style: style}
		for _, k := range val.keys {
			child, err := yamlNode(val.values[k], depth+1, inline)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, yamlKey(k), child)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unsupported manifest value type %T", v)
	}
}

// yamlKey builds a key node. Keys whose plain form would resolve to
// anything but a string, "<<" among them, are double quoted.
func yamlKey(k string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
	if (&yaml.Node{Kind: yaml.ScalarNode, Value: k}).ShortTag() != "!!str" {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}

func yamlFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// EncodeJSON serializes v as pretty-printed JSON followed by a newline.
// Slashes, HTML characters and non-ASCII text are written unescaped.
func EncodeJSON(v Value, opts JSONOptions) ([]byte, error) {
	norm, err := normalize(v)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "encoding JSON")
	}

	indent := opts.Indent
	if indent <= 0 {
		indent = DefaultJSONOptions().Indent
	}

	e := &jsonEncoder{indent: strings.Repeat(" ", indent)}
	if err := e.value(norm, 0); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "encoding JSON")
	}
	e.buf.WriteByte('\n')
	return e.buf.Bytes(), nil
}

type jsonEncoder struct {
	buf    bytes.Buffer
	indent string
}

func (e *jsonEncoder) newline(depth int) {
	e.buf.WriteByte('\n')
	for range depth {
		e.buf.WriteString(e.indent)
	}
}

func (e *jsonEncoder) value(v Value, depth int) error {
	switch val := v.(type) {
	case nil, noContent:
		e.buf.WriteString("null")
	case bool:
		e.buf.WriteString(strconv.FormatBool(val))
	case int64:
		e.buf.WriteString(strconv.FormatInt(val, 10))
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("%v cannot be represented in JSON", val)
		}
		out, err := json.Marshal(val)
		if err != nil {
			return err
		}
		e.buf.Write(out)
	case string:
		e.str(val)
	case []any:
		if len(val) == 0 {
			e.buf.WriteString("[]")
			return nil
		}
		e.buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.newline(depth + 1)
			if err := e.value(item, depth+1); err != nil {
				return err
			}
		}
		e.newline(depth)
		e.buf.WriteByte(']')
	case *Map:
		if val.Len() == 0 {
			e.buf.WriteString("{}")
			return nil
		}
		e.buf.WriteByte('{')
		for i, k := range val.keys {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.newline(depth + 1)
			e.str(k)
			e.buf.WriteString(": ")
			if err := e.value(val.values[k], depth+1); err != nil {
				return err
			}
		}
		e.newline(depth)
		e.buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported manifest value type %T", v)
	}
	return nil
}

func (e *jsonEncoder) str(s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	e.buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
}
