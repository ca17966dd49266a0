package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewportCenter(t *testing.T) {
	tests := []struct {
		name string
		vp   *Viewport
		want Position
	}{
		{"no viewport", nil, Position{X: 100, Y: 100}},
		{"zero zoom", &Viewport{Width: 800, Height: 600}, Position{X: 100, Y: 100}},
		{"identity", &Viewport{Width: 800, Height: 600, Zoom: 1}, Position{X: 400, Y: 300}},
		{"panned", &Viewport{Width: 800, Height: 600, PanX: 200, PanY: -100, Zoom: 1}, Position{X: 200, Y: 400}},
		{"zoomed out", &Viewport{Width: 1000, Height: 500, Zoom: 0.5}, Position{X: 1000, Y: 500}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ViewportCenter(tt.vp))
		})
	}
}

func TestGridPosition(t *testing.T) {
	assert.Equal(t, Position{X: 200, Y: 200}, GridPosition(0))
	assert.Equal(t, Position{X: 400, Y: 300}, GridPosition(1))
	assert.Equal(t, Position{X: 800, Y: 500}, GridPosition(3))
}

func TestSpecialPosition(t *testing.T) {
	assert.Equal(t, Position{X: 100, Y: 50}, SpecialPosition(0))
	assert.Equal(t, Position{X: 350, Y: 50}, SpecialPosition(1))
}

func TestSetViewport_CopiesInput(t *testing.T) {
	c, _ := newTestCanvas(t)
	vp := &Viewport{Width: 800, Height: 600, Zoom: 1}
	c.SetViewport(vp)
	vp.Zoom = 0

	id := mustAdd(t, c, "A")
	n, _ := c.Node(id)
	assert.Equal(t, Position{X: 400, Y: 300}, n.Position)

	c.SetViewport(nil)
	id = mustAdd(t, c, "B")
	n, _ = c.Node(id)
	assert.Equal(t, Position{X: DefaultX, Y: DefaultY}, n.Position)
}
