package atomsynth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type (
	// Config is an ordered key/value tree that captures the configuration of a
	// unit. Values are float64, int, string, bool or a nested *Config. The
	// order of keys is kept for readable output only; lookups never depend on
	// it.
	//
	// All getters work on a nil *Config and return the given default, as do
	// getters for missing keys or keys holding a value of another type. This is
	// what makes restoring a patch from an older or hand-edited file tolerant.
	Config struct {
		entries []configEntry
	}

	configEntry struct {
		key   string
		value any
	}
)

// NewConfig returns an empty Config.
func NewConfig() *Config { return &Config{} }

// Len returns the number of keys.
func (c *Config) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Keys returns the keys in insertion order.
func (c *Config) Keys() []string {
	if c == nil {
		return nil
	}
	ret := make([]string, len(c.entries))
	for i, e := range c.entries {
		ret[i] = e.key
	}
	return ret
}

// Get returns the raw value stored under key.
func (c *Config) Get(key string) (any, bool) {
	if i := c.index(key); i >= 0 {
		return c.entries[i].value, true
	}
	return nil, false
}

func (c *Config) SetFloat(key string, v float64) *Config { return c.set(key, v) }
func (c *Config) SetInt(key string, v int) *Config       { return c.set(key, v) }
func (c *Config) SetText(key string, v string) *Config   { return c.set(key, v) }
func (c *Config) SetBool(key string, v bool) *Config     { return c.set(key, v) }
func (c *Config) SetChild(key string, v *Config) *Config { return c.set(key, v) }

// set replaces the value of an existing key in place, or appends a new key.
func (c *Config) set(key string, v any) *Config {
	if i := c.index(key); i >= 0 {
		c.entries[i].value = v
		return c
	}
	c.entries = append(c.entries, configEntry{key: key, value: v})
	return c
}

// Delete removes key, if present.
func (c *Config) Delete(key string) {
	if i := c.index(key); i >= 0 {
		c.entries = append(c.entries[:i], c.entries[i+1:]...)
	}
}

func (c *Config) index(key string) int {
	if c == nil {
		return -1
	}
	for i, e := range c.entries {
		if e.key == key {
			return i
		}
	}
	return -1
}

// Float returns the number stored under key. Integers are converted.
func (c *Config) Float(key string, def float64) float64 {
	v, _ := c.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return def
}

// Int returns the integer stored under key. Floats with no fractional part
// are converted; other floats are a type mismatch.
func (c *Config) Int(key string, def int) int {
	v, _ := c.Get(key)
	switch n := v.(type) {
	case int:
		return n
	case float64:
		if n == math.Trunc(n) && math.Abs(n) <= math.MaxInt32 {
			return int(n)
		}
	}
	return def
}

// Text returns the string stored under key.
func (c *Config) Text(key string, def string) string {
	if s, ok := c.valueOf(key).(string); ok {
		return s
	}
	return def
}

// Bool returns the boolean stored under key.
func (c *Config) Bool(key string, def bool) bool {
	if b, ok := c.valueOf(key).(bool); ok {
		return b
	}
	return def
}

// Child returns the nested Config stored under key, or nil.
func (c *Config) Child(key string) *Config {
	if ch, ok := c.valueOf(key).(*Config); ok {
		return ch
	}
	return nil
}

func (c *Config) valueOf(key string) any {
	v, _ := c.Get(key)
	return v
}

// Copy makes a deep copy.
func (c *Config) Copy() *Config {
	if c == nil {
		return nil
	}
	ret := &Config{entries: make([]configEntry, len(c.entries))}
	for i, e := range c.entries {
		if ch, ok := e.value.(*Config); ok {
			e.value = ch.Copy()
		}
		ret.entries[i] = e
	}
	return ret
}

// Equal reports whether c and o hold the same keys with the same values,
// regardless of key order. Numbers compare by value, so an int 1 equals a
// float 1.0. A nil Config equals an empty one.
func (c *Config) Equal(o *Config) bool {
	if c.Len() != o.Len() {
		return false
	}
	for _, e := range c.entriesOrNil() {
		v, ok := o.Get(e.key)
		if !ok || !valuesEqual(e.value, v) {
			return false
		}
	}
	return true
}

func (c *Config) entriesOrNil() []configEntry {
	if c == nil {
		return nil
	}
	return c.entries
}

func valuesEqual(a, b any) bool {
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && (fa == fb || math.IsNaN(fa) && math.IsNaN(fb))
	}
	if ca, ok := a.(*Config); ok {
		cb, ok := b.(*Config)
		return ok && ca.Equal(cb)
	}
	return a == b
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// formatFloat formats f so that it always reads back as a float: 1 becomes
// "1.0", not "1".
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// MarshalYAML encodes the Config as a YAML mapping in key order.
func (c *Config) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range c.entriesOrNil() {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.key}
		var value *yaml.Node
		switch v := e.value.(type) {
		case float64:
			switch {
			case math.IsInf(v, 1):
				value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: ".inf"}
			case math.IsInf(v, -1):
				value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: "-.inf"}
			case math.IsNaN(v):
				value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: ".nan"}
			default:
				value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFloat(v)}
			}
		case int:
			value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)}
		case bool:
			value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}
		case string:
			value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
		case *Config:
			m, err := v.MarshalYAML()
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", e.key, err)
			}
			value = m.(*yaml.Node)
		default:
			return nil, fmt.Errorf("key %q: unsupported value type %T", e.key, e.value)
		}
		node.Content = append(node.Content, key, value)
	}
	if len(node.Content) > 0 && allScalars(node) {
		node.Style = yaml.FlowStyle
	}
	return node, nil
}

func allScalars(node *yaml.Node) bool {
	for _, n := range node.Content {
		if n.Kind != yaml.ScalarNode {
			return false
		}
	}
	return true
}

// UnmarshalYAML decodes a YAML mapping. Values of unsupported kinds (lists,
// nulls, aliases) are skipped rather than reported.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: config must be a mapping", node.Line)
	}
	c.entries = c.entries[:0]
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		switch value.Kind {
		case yaml.MappingNode:
			child := NewConfig()
			if err := child.UnmarshalYAML(value); err != nil {
				return err
			}
			c.set(key, child)
		case yaml.ScalarNode:
			if v, ok := decodeYAMLScalar(value); ok {
				c.set(key, v)
			}
		}
	}
	return nil
}

func decodeYAMLScalar(n *yaml.Node) (any, bool) {
	switch n.ShortTag() {
	case "!!int":
		var v int
		if err := n.Decode(&v); err == nil {
			return v, true
		}
		var f float64
		if err := n.Decode(&f); err == nil {
			return f, true
		}
	case "!!float":
		var f float64
		if err := n.Decode(&f); err == nil {
			return f, true
		}
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return b, true
		}
	case "!!str":
		return n.Value, true
	}
	return nil, false
}

// MarshalJSON encodes the Config as a JSON object in key order.
func (c *Config) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c.entriesOrNil() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(e.key)
		buf.Write(k)
		buf.WriteByte(':')
		switch v := e.value.(type) {
		case float64:
			if math.IsInf(v, 0) || math.IsNaN(v) {
				return nil, fmt.Errorf("key %q: %v cannot be represented in JSON", e.key, v)
			}
			buf.WriteString(formatFloat(v))
		case *Config:
			b, err := v.MarshalJSON()
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", e.key, err)
			}
			buf.Write(b)
		case int, bool, string:
			b, _ := json.Marshal(v)
			buf.Write(b)
		default:
			return nil, fmt.Errorf("key %q: unsupported value type %T", e.key, e.value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var errNotObject = errors.New("config must be a JSON object")

// UnmarshalJSON decodes a JSON object, keeping the order of its keys. Arrays
// and nulls are skipped.
func (c *Config) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("json.Decoder.Token: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errNotObject
	}
	c.entries = c.entries[:0]
	return c.decodeObject(dec)
}

func (c *Config) decodeObject(dec *json.Decoder) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json.Decoder.Token: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return errNotObject
		}
		tok, err = dec.Token()
		if err != nil {
			return fmt.Errorf("json.Decoder.Token: %w", err)
		}
		switch v := tok.(type) {
		case json.Delim:
			if v == '{' {
				child := NewConfig()
				if err := child.decodeObject(dec); err != nil {
					return err
				}
				c.set(key, child)
			} else if err := skipJSON(dec); err != nil {
				return err
			}
		case json.Number:
			s := v.String()
			if strings.ContainsAny(s, ".eE") {
				if f, err := v.Float64(); err == nil {
					c.set(key, f)
				}
			} else if n, err := strconv.Atoi(s); err == nil {
				c.set(key, n)
			} else if f, err := v.Float64(); err == nil {
				c.set(key, f)
			}
		case string, bool:
			c.set(key, v)
		}
	}
	_, err := dec.Token() // closing '}'
	return err
}

// skipJSON skips the rest of an array whose opening '[' was already read.
func skipJSON(dec *json.Decoder) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json.Decoder.Token: %w", err)
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '[', '{':
				depth++
			case ']', '}':
				depth--
			}
		}
	}
	return nil
}
