package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/dendrex/internal/domain"
)

// Schema names the input columns holding the id, attribute and text of a row.
type Schema struct {
	ID        string
	Attribute string
	Text      string
}

// DefaultSchema matches the spreadsheet layout: id, url, description.
func DefaultSchema() Schema {
	return Schema{ID: "id", Attribute: "url", Text: "description"}
}

// Columns returns the required column names in declaration order.
func (s Schema) Columns() []string {
	return []string{s.ID, s.Attribute, s.Text}
}

// Record is one input row (immutable value object).
type Record struct {
	id        string
	attribute string
	text      string
}

// New creates a Record.
func New(id, attribute, text string) Record {
	return Record{id: id, attribute: attribute, text: text}
}

// ID returns the entity identifier.
func (r Record) ID() string { return r.id }

// Attribute returns the representative attribute (e.g. url).
func (r Record) Attribute() string { return r.attribute }

// Text returns the free-text fragment.
func (r Record) Text() string { return r.text }

// Parse converts decoded rows into Records.
// A required column that appears in no row, or never holds a value, is an ErrSchema.
// Rows without an id are skipped.
func Parse(rows []map[string]any, schema Schema) ([]Record, error) {
	if err := CheckColumns(rows, schema.Columns()); err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		id := Cell(row[schema.ID])
		if id == "" {
			continue
		}
		out = append(out, Record{
			id:        id,
			attribute: Cell(row[schema.Attribute]),
			text:      Cell(row[schema.Text]),
		})
	}
	return out, nil
}

// CheckColumns verifies every required column is present and filled at least once.
func CheckColumns(rows []map[string]any, required []string) error {
	var missing, empty []string
	for _, col := range required {
		present, filled := false, false
		for _, row := range rows {
			v, ok := row[col]
			if !ok {
				continue
			}
			present = true
			if Cell(v) != "" {
				filled = true
				break
			}
		}
		switch {
		case !present:
			missing = append(missing, col)
		case !filled:
			empty = append(empty, col)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing columns: %s", domain.ErrSchema, strings.Join(missing, ", "))
	}
	if len(empty) > 0 {
		return fmt.Errorf("%w: empty columns: %s", domain.ErrSchema, strings.Join(empty, ", "))
	}
	return nil
}

// Cell renders a decoded cell value as a string.
// Whole numbers print without a fractional part, nil and NaN print as "".
func Cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if math.IsNaN(t) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return Cell(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
