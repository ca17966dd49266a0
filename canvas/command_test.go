package canvas

import (
	"encoding/json"
	"testing"

	"github.com/meikuraledutech/flowgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{`{"type":"add_node","persona":"Writer"}`, AddNode{Persona: "Writer"}},
		{`{"type":"delete_node","id":"n1"}`, DeleteNode{ID: "n1"}},
		{`{"type":"delete_edge","id":"e1"}`, DeleteEdge{ID: "e1"}},
		{`{"type":"connect","source":"a","target":"b"}`, Connect{Source: "a", Target: "b"}},
		{`{"type":"rewire","edge_id":"e1","end":"target","node_id":"c"}`, Rewire{EdgeID: "e1", End: EndpointTarget, NodeID: "c"}},
		{`{"type":"set_persona","node_id":"n1","persona":"Editor"}`, SetPersona{NodeID: "n1", Persona: "Editor"}},
		{`{"type":"move_node","node_id":"n1","position":{"x":1.5,"y":2}}`, MoveNode{NodeID: "n1", Position: Position{X: 1.5, Y: 2}}},
		{`{"type":"clear","confirmed":true}`, Clear{Confirmed: true}},
		{`{"type":"click_node","id":"n1"}`, ClickNode{ID: "n1"}},
		{`{"type":"click_edge","id":"e1"}`, ClickEdge{ID: "e1"}},
		{`{"type":"click_canvas"}`, ClickCanvas{}},
		{`{"type":"key_press","key":"Backspace"}`, KeyPress{Key: KeyBackspace}},
	}
	for _, tt := range tests {
		t.Run(tt.want.Name(), func(t *testing.T) {
			got, err := DecodeCommand([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeCommand_Errors(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"type":"explode"}`))
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.NotErrorIs(t, err, ErrInvalidCommand)

	for _, in := range []string{
		`not json`,
		`{"type":"rewire","edge_id":"e1","end":"middle","node_id":"c"}`,
		`{"type":"key_press","key":"Enter"}`,
		`{"type":"connect","source":5}`,
	} {
		_, err := DecodeCommand([]byte(in))
		assert.ErrorIs(t, err, ErrInvalidCommand, in)
		assert.NotErrorIs(t, err, ErrUnknownCommand, in)
	}
}

func TestVisualState_JSONRoundTrip(t *testing.T) {
	c, _ := newTestCanvas(t)
	c.SetSpecialNodes(promptCatalog())
	a := mustAdd(t, c, "A")
	require.NoError(t, c.ClickNode(a))

	type view struct {
		Nodes     []Node    `json:"nodes"`
		Edges     []Edge    `json:"edges"`
		Selection Selection `json:"selection"`
	}
	want := view{Nodes: c.Nodes(), Edges: c.Edges(), Selection: c.Selection()}
	data, err := json.Marshal(want)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"special"`)
	assert.Contains(t, string(data), `"type":"custom"`)
	assert.Contains(t, string(data), `"state":"node_selected"`)

	var got view
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, want, got)

	var v Variant
	assert.Error(t, v.UnmarshalText([]byte("robot")))
	var st SelectionState
	assert.Error(t, st.UnmarshalText([]byte("busy")))
	require.NoError(t, st.UnmarshalText([]byte("edge_selected")))
	assert.Equal(t, EdgeSelected, st)
}

func TestDispatch_Session(t *testing.T) {
	c, rec := newTestCanvas(t)
	c.SetSpecialNodes(promptCatalog())

	res, err := c.Dispatch(AddNode{Persona: "Writer"})
	require.NoError(t, err)
	node := res.NodeID
	require.NotEmpty(t, node)

	res, err = c.Dispatch(Connect{Source: "special-0", Target: node})
	require.NoError(t, err)
	edge := res.EdgeID

	_, err = c.Dispatch(Connect{Source: node, Target: node})
	assert.ErrorIs(t, err, ErrSelfLoop)

	_, err = c.Dispatch(ClickEdge{ID: edge})
	require.NoError(t, err)
	_, err = c.Dispatch(KeyPress{Key: KeyDelete})
	require.NoError(t, err)
	assert.Empty(t, c.Edges())

	res, err = c.Dispatch(Clear{})
	require.NoError(t, err)
	assert.False(t, res.Cleared)
	assert.Equal(t, 1, c.AgentCount())

	res, err = c.Dispatch(Clear{Confirmed: true})
	require.NoError(t, err)
	assert.True(t, res.Cleared)
	assert.Equal(t, []flowgraph.Node{flowgraph.NewSpecialNode(promptCatalog()[0])}, rec.last().Nodes)

	_, err = c.Dispatch(nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
