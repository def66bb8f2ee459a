package graph

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Well-known port ids used by the builtin node kinds.
const (
	PortInput   = "input"
	PortOutput  = "output"
	PortTrigger = "trigger"
	PortData    = "data"
	PortYes     = "yes"
	PortNo      = "no"
)

// Ports lists the port ids a node declares, per direction.
type Ports struct {
	Input  []string
	Output []string
}

// Node is a vertex of the flow graph.
type Node struct {
	ID         string
	Type       string
	Title      string
	Ports      Ports
	Properties Properties
}

// HasInput reports whether the node declares the input port.
func (n *Node) HasInput(port string) bool {
	return slices.Contains(n.Ports.Input, port)
}

// HasOutput reports whether the node declares the output port.
func (n *Node) HasOutput(port string) bool {
	return slices.Contains(n.Ports.Output, port)
}

// DisplayTitle returns the title, falling back to type and id.
func (n *Node) DisplayTitle() string {
	if n.Title != "" {
		return n.Title
	}
	return fmt.Sprintf("%s %q", n.Type, n.ID)
}

// Connection joins an output port to an input port.
type Connection struct {
	ID         string
	FromNodeID string
	FromPortID string
	ToNodeID   string
	ToPortID   string
}

// String renders the connection as "from.port -> to.port".
func (c Connection) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", c.FromNodeID, c.FromPortID, c.ToNodeID, c.ToPortID)
}

// Properties is the node configuration, keyed by property name. Values are
// whatever the loader produced: strings, bools, numbers, lists and maps.
type Properties map[string]any

// Raw returns the value stored under key.
func (p Properties) Raw(key string) (any, bool) {
	v, ok := p[key]
	return v, ok
}

// String returns the property as a string, or def when missing or empty.
func (p Properties) String(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	s := fmt.Sprint(v)
	if s == "" {
		return def
	}
	return s
}

// Float returns the property as a float64, or def when missing or not numeric.
func (p Properties) Float(key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	if f, ok := ToFloat(v); ok {
		return f
	}
	return def
}

// Int returns the property truncated to an int, or def.
func (p Properties) Int(key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	if f, ok := ToFloat(v); ok {
		return int(f)
	}
	return def
}

// Bool returns the property as a bool, or def. The strings "true" and
// "false" are accepted.
func (p Properties) Bool(key string, def bool) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// ToFloat converts numeric values and numeric strings to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
