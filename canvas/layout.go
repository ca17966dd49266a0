package canvas

// Layout policy. Positions are never persisted; they are regenerated from
// these rules whenever nodes are created or loaded.
const (
	// Fallback for new nodes when no viewport is known.
	DefaultX = 100
	DefaultY = 100

	// Loaded agent nodes are staggered diagonally by index.
	GridOriginX = 200
	GridOriginY = 200
	GridStepX   = 200
	GridStepY   = 100

	// Special nodes sit in their own row above the agents, one slot per
	// catalog entry in catalog order.
	SpecialRowY    = 50
	SpecialOriginX = 100
	SpecialStepX   = 250
)

// Viewport is the renderer's pan/zoom transform plus its pixel size.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	PanX   float64 `json:"pan_x"`
	PanY   float64 `json:"pan_y"`
	Zoom   float64 `json:"zoom"`
}

// ViewportCenter converts the screen center into flow coordinates.
func ViewportCenter(v *Viewport) Position {
	if v == nil || v.Zoom <= 0 {
		return Position{X: DefaultX, Y: DefaultY}
	}
	return Position{
		X: (v.Width/2 - v.PanX) / v.Zoom,
		Y: (v.Height/2 - v.PanY) / v.Zoom,
	}
}

// GridPosition places the i-th loaded agent node.
func GridPosition(i int) Position {
	return Position{
		X: float64(GridOriginX + i*GridStepX),
		Y: float64(GridOriginY + i*GridStepY),
	}
}

// SpecialPosition places the i-th special node of the catalog.
func SpecialPosition(i int) Position {
	return Position{
		X: float64(SpecialOriginX + i*SpecialStepX),
		Y: SpecialRowY,
	}
}
