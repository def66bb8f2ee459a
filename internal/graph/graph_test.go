package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProperties_Getters(t *testing.T) {
	p := Properties{
		"name":     "counter",
		"empty":    "",
		"int":      3,
		"int64":    int64(7),
		"float":    2.5,
		"numeric":  " 12.5 ",
		"word":     "abc",
		"flag":     true,
		"flagText": "false",
	}

	assert.Equal(t, "counter", p.String("name", "x"))
	assert.Equal(t, "x", p.String("empty", "x"))
	assert.Equal(t, "x", p.String("missing", "x"))
	assert.Equal(t, "3", p.String("int", ""))

	assert.Equal(t, 3.0, p.Float("int", 0))
	assert.Equal(t, 7.0, p.Float("int64", 0))
	assert.Equal(t, 2.5, p.Float("float", 0))
	assert.Equal(t, 12.5, p.Float("numeric", 0))
	assert.Equal(t, 9.0, p.Float("word", 9))
	assert.Equal(t, 2, p.Int("float", 0))
	assert.Equal(t, 4, p.Int("missing", 4))

	assert.True(t, p.Bool("flag", false))
	assert.False(t, p.Bool("flagText", true))
	assert.True(t, p.Bool("missing", true))
}

func TestNode_Ports(t *testing.T) {
	n := &Node{ID: "g", Type: "gate", Ports: Ports{Input: []string{PortTrigger, PortData}, Output: []string{PortOutput}}}

	assert.True(t, n.HasInput(PortTrigger))
	assert.False(t, n.HasInput(PortInput))
	assert.True(t, n.HasOutput(PortOutput))
	assert.Equal(t, `gate "g"`, n.DisplayTitle())
}

func TestConnection_String(t *testing.T) {
	c := Connection{FromNodeID: "a", FromPortID: "output", ToNodeID: "b", ToPortID: "input"}
	assert.Equal(t, "a.output -> b.input", c.String())
}
