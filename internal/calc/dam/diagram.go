package dam

// Point is a location in the section plane: X along the base from the
// upstream toe, Y up from the base, both in metres.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Force is one load drawn on the force diagram.
type Force struct {
	Name      string  `json:"name"`
	At        Point   `json:"at"`
	Dir       Point   `json:"dir"` // unit direction
	Magnitude float64 `json:"magnitude"`
	Arm       float64 `json:"arm"`
}

// Figure is everything needed to draw the section and its loads.
type Figure struct {
	H       float64 `json:"H"`
	Params  Params  `json:"params"`
	Outline []Point `json:"outline"` // closed polygon
	Arms    Arms    `json:"arms"`
	Forces  []Force `json:"forces"`
}

var (
	down  = Point{0, -1}
	up    = Point{0, 1}
	right = Point{1, 0}
)

// Diagram places the section outline and the application point of every load.
// Horizontal positions are measured from the base centre B/2 using the same
// moment arms as Evaluate.
func Diagram(s Site, p Params) (Figure, error) {
	st, err := Evaluate(s, p)
	if err != nil {
		return Figure{}, err
	}
	h := s.H
	u := 1 - p.Xi
	x1 := p.N * h * u
	x4 := x1 + p.M*h
	mid := st.B / 2

	return Figure{
		H:      h,
		Params: p,
		Outline: []Point{
			{0, 0},
			{x1, h * u},
			{x1, h},
			{x4, 0},
			{0, 0},
		},
		Arms: st.Arms,
		Forces: []Force{
			{Name: "G1", At: Point{mid - st.LG1, h / 3}, Dir: down, Magnitude: st.G1, Arm: st.LG1},
			{Name: "G2", At: Point{mid - st.LG2, h * u / 3}, Dir: down, Magnitude: st.G2, Arm: st.LG2},
			{Name: "Wt", At: Point{mid - st.Lt, 0}, Dir: up, Magnitude: st.Wt, Arm: st.Lt},
			{Name: "W2'", At: Point{mid - st.L2, h*u + p.Xi*h/2}, Dir: down, Magnitude: st.W21, Arm: st.L2},
			{Name: "W2''", At: Point{mid - st.L22, 2.0 / 3 * h * u}, Dir: down, Magnitude: st.W22, Arm: st.L22},
			{Name: "W1", At: Point{0, st.L1}, Dir: right, Magnitude: st.W1, Arm: st.L1},
		},
	}, nil
}
