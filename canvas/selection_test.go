package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelection_Transitions(t *testing.T) {
	c, _ := newTestCanvas(t)
	a := mustAdd(t, c, "A")
	b := mustAdd(t, c, "B")
	e := mustConnect(t, c, a, b)

	assert.Equal(t, Idle, c.Selection().State)

	require.NoError(t, c.ClickNode(a))
	id, ok := c.Selection().NodeID()
	assert.True(t, ok)
	assert.Equal(t, a, id)
	_, ok = c.Selection().EdgeID()
	assert.False(t, ok)

	require.NoError(t, c.ClickEdge(e))
	id, ok = c.Selection().EdgeID()
	assert.True(t, ok)
	assert.Equal(t, e, id)
	_, ok = c.Selection().NodeID()
	assert.False(t, ok, "edge selection clears node selection")

	require.NoError(t, c.ClickNode(b))
	assert.Equal(t, Selection{State: NodeSelected, ID: b}, c.Selection())

	c.ClickCanvas()
	assert.Equal(t, Selection{}, c.Selection())

	require.NoError(t, c.ClickEdge(e))
	require.NoError(t, c.PressKey(KeyEscape))
	assert.Equal(t, Idle, c.Selection().State)
}

func TestSelection_UnknownTargetsKeepSelection(t *testing.T) {
	c, _ := newTestCanvas(t)
	a := mustAdd(t, c, "A")
	require.NoError(t, c.ClickNode(a))

	assert.ErrorIs(t, c.ClickNode("ghost"), ErrNodeNotFound)
	assert.ErrorIs(t, c.ClickEdge("ghost"), ErrEdgeNotFound)
	assert.Equal(t, Selection{State: NodeSelected, ID: a}, c.Selection())
}

func TestPressKey_DeletesSelectedEdge(t *testing.T) {
	for _, key := range []Key{KeyDelete, KeyBackspace} {
		c, _ := newTestCanvas(t)
		a := mustAdd(t, c, "A")
		b := mustAdd(t, c, "B")
		e := mustConnect(t, c, a, b)
		require.NoError(t, c.ClickEdge(e))

		require.NoError(t, c.PressKey(key))
		assert.Empty(t, c.Edges())
		assert.Equal(t, Idle, c.Selection().State)
		assert.Equal(t, 2, c.AgentCount())
	}
}

func TestPressKey_DeletesSelectedNode(t *testing.T) {
	c, _ := newTestCanvas(t)
	a := mustAdd(t, c, "A")
	b := mustAdd(t, c, "B")
	mustConnect(t, c, a, b)
	require.NoError(t, c.ClickNode(a))

	require.NoError(t, c.PressKey(KeyDelete))
	assert.Equal(t, 1, c.AgentCount())
	assert.Empty(t, c.Edges())
	assert.Equal(t, Idle, c.Selection().State)
}

func TestPressKey_SpecialNodeGuardKeepsSelection(t *testing.T) {
	c, _ := newTestCanvas(t)
	c.SetSpecialNodes(promptCatalog())
	require.NoError(t, c.ClickNode("special-0"))

	err := c.PressKey(KeyBackspace)
	assert.ErrorIs(t, err, ErrProtectedNode)
	assert.Len(t, c.Nodes(), 1)
	assert.Equal(t, Selection{State: NodeSelected, ID: "special-0"}, c.Selection())
}

func TestPressKey_IdleDeleteIsNoop(t *testing.T) {
	c, _ := newTestCanvas(t)
	mustAdd(t, c, "A")
	rev := c.Revision()

	require.NoError(t, c.PressKey(KeyDelete))
	assert.Equal(t, rev, c.Revision())
}

func TestDeleteNode_ClearsSelectionOfCascadedEdge(t *testing.T) {
	c, _ := newTestCanvas(t)
	a := mustAdd(t, c, "A")
	b := mustAdd(t, c, "B")
	e := mustConnect(t, c, a, b)
	require.NoError(t, c.ClickEdge(e))

	require.NoError(t, c.DeleteNode(b))
	assert.Equal(t, Idle, c.Selection().State)
}

func TestDeleteNode_KeepsUnrelatedSelection(t *testing.T) {
	c, _ := newTestCanvas(t)
	a := mustAdd(t, c, "A")
	b := mustAdd(t, c, "B")
	require.NoError(t, c.ClickNode(a))

	require.NoError(t, c.DeleteNode(b))
	assert.Equal(t, Selection{State: NodeSelected, ID: a}, c.Selection())
}
