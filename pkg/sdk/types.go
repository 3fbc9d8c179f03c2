package dendrex

// Linkage selects the agglomerative merge rule.
type Linkage string

// Linkage constants.
const (
	LinkageWard    Linkage = "ward"
	LinkageAverage Linkage = "average"
)

// Result is a finished analysis.
type Result struct {
	// Z is the similarity matrix with rows and columns in dendrogram leaf order.
	Z          [][]float32
	IDs        []string
	Dendrogram Dendrogram
	// Attributes maps each id to its attribute (the first one seen for text, the label for cards).
	Attributes map[string]string
}

// Dendrogram is the plottable merge tree.
type Dendrogram struct {
	Labels []string
	ICoord [][]float64
	DCoord [][]float64
	Colors []string
	Leaves []int
}

// Corpus is the aggregated input of the similarity stage, one document per id.
type Corpus struct {
	IDs        []string
	Documents  []string
	Attributes map[string]string
}

// Placement is one card placed by one participant into one group.
// An empty Group counts as unsorted.
type Placement struct {
	Participant string
	Card        string
	Label       string
	Group       string
}
