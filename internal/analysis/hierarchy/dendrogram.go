package hierarchy

import "strconv"

// AboveThresholdColor colors links at or above the color threshold.
const AboveThresholdColor = "C0"

// Palette cycles through clusters formed below the color threshold.
var Palette = []string{"C1", "C2", "C3", "C4", "C5", "C6", "C7", "C8", "C9"}

// Geometry is the drawable form of a merge tree, one entry per merge in post-order.
// Leaves sit at x = 5, 15, 25, ...; leaf heights are 0.
type Geometry struct {
	Leaves []int
	Labels []string
	ICoord [][]float64
	DCoord [][]float64
	Colors []string
}

// Dendrogram lays out the tree for plotting. labels may be nil, in which case
// leaf indices are used. colorThreshold <= 0 selects 0.7 of the largest merge distance.
func Dendrogram(t *Tree, labels []string, colorThreshold float64) Geometry {
	g := Geometry{
		Leaves: make([]int, 0, t.leaves),
		Labels: make([]string, 0, t.leaves),
		ICoord: make([][]float64, 0, len(t.merges)),
		DCoord: make([][]float64, 0, len(t.merges)),
		Colors: make([]string, 0, len(t.merges)),
	}
	if t.leaves == 0 {
		return g
	}
	if colorThreshold <= 0 {
		colorThreshold = 0.7 * t.MaxDistance()
	}

	w := &walker{tree: t, labels: labels, threshold: colorThreshold, geo: &g}
	w.visit(t.leaves+len(t.merges)-1, 0)
	return g
}

type walker struct {
	tree      *Tree
	labels    []string
	threshold float64
	color     int
	below     bool
	geo       *Geometry
}

// visit lays out the subtree rooted at id starting at x offset iv.
// Returns the subtree's link x position, width and height.
func (w *walker) visit(id int, iv float64) (x, width, height float64) {
	n := w.tree.leaves
	if id < n {
		w.geo.Leaves = append(w.geo.Leaves, id)
		w.geo.Labels = append(w.geo.Labels, w.label(id))
		return iv + 5, 10, 0
	}

	m := w.tree.merges[id-n]
	h := m.Distance

	xa, wa, ha := w.visit(m.Left, iv)

	// The link color is decided between the two subtrees: a link above the
	// threshold closes the current cluster color so the right subtree starts a new one.
	var c string
	if h >= w.threshold || w.threshold <= 0 {
		c = AboveThresholdColor
		if w.below {
			w.color = (w.color + 1) % len(Palette)
		}
		w.below = false
	} else {
		w.below = true
		c = Palette[w.color]
	}

	xb, wb, hb := w.visit(m.Right, iv+wa)

	w.geo.ICoord = append(w.geo.ICoord, []float64{xa, xa, xb, xb})
	w.geo.DCoord = append(w.geo.DCoord, []float64{ha, h, h, hb})
	w.geo.Colors = append(w.geo.Colors, c)

	return (xa + xb) / 2, wa + wb, h
}

func (w *walker) label(leaf int) string {
	if leaf < len(w.labels) {
		return w.labels[leaf]
	}
	return strconv.Itoa(leaf)
}
