package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/agentstation/attrmap/pkg/attributes"
	"github.com/agentstation/attrmap/pkg/equivalence"
	"github.com/agentstation/attrmap/pkg/schema"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents data formatted for table output.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align
}

// Fact is a labelled scalar shown above a document's sections.
type Fact struct {
	Label string
	Value string
}

// Section is a titled table and/or bullet list.
type Section struct {
	Title string
	Table *Data
	Items []string
}

// Document is a human readable report rendered by the table and markdown
// formatters.
type Document struct {
	Title    string
	Facts    []Fact
	Sections []Section
}

// ResultDocument renders a build result as a report.
func ResultDocument(res *attributes.Result) Document {
	doc := Document{
		Title: "Attributes for " + res.CategoryID,
		Facts: []Fact{
			{Label: "Run", Value: res.RunID},
			{Label: "Resolved", Value: strconv.Itoa(len(res.Attributes))},
			{Label: "Stats", Value: fmt.Sprintf("direct=%d reused=%d learned=%d missing=%d",
				res.Stats.Direct, res.Stats.Reused, res.Stats.Learned, res.Stats.Missing)},
		},
	}
	if res.PrimaryID != "" {
		doc.Facts = append(doc.Facts, Fact{Label: "SKU", Value: res.PrimaryID})
	}
	if len(res.ProductCodes) > 0 {
		doc.Facts = append(doc.Facts, Fact{Label: "Product codes", Value: strings.Join(res.ProductCodes, ", ")})
	}
	if p := res.Package; p != nil {
		doc.Facts = append(doc.Facts, Fact{
			Label: "Package",
			Value: fmt.Sprintf("%g x %g x %g cm, %g kg", p.LengthCM, p.WidthCM, p.HeightCM, p.WeightKG),
		})
	}

	sources := make(map[string]attributes.Resolution, len(res.Matched))
	for _, m := range res.Matched {
		sources[m.ID] = m
	}

	rows := make([][]string, 0, len(res.Attributes))
	for _, attr := range res.Attributes {
		m := sources[attr.ID]
		from := m.Key
		if from == "" {
			from = "-"
		}
		rows = append(rows, []string{attr.ID, attr.Value(), attr.Kind(), string(m.Source), from})
	}
	doc.Sections = append(doc.Sections, Section{
		Title: "Attributes",
		Table: &Data{
			Headers:         []string{"ID", "Value", "Kind", "Source", "Key"},
			Rows:            rows,
			ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignLeft},
		},
	})

	if len(res.Learned) > 0 {
		doc.Sections = append(doc.Sections, Section{
			Title: "Learned Equivalences",
			Table: ptr(CacheData(res.Learned)),
		})
	}
	if len(res.Missing) > 0 {
		doc.Sections = append(doc.Sections, Section{Title: "Missing", Items: res.Missing})
	}
	return doc
}

// CacheData renders an equivalence cache as a table sorted by id.
func CacheData(c equivalence.Cache) Data {
	ids := c.IDs()
	sort.Strings(ids)
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string{id, strconv.Itoa(len(c[id])), strings.Join(c[id], ", ")})
	}
	return Data{
		Headers:         []string{"ID", "Count", "Aliases"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignLeft},
	}
}

// SchemaData renders a category schema as a table in schema order.
func SchemaData(s *schema.Schema) Data {
	attrs := s.Attributes()
	rows := make([][]string, 0, len(attrs))
	for _, a := range attrs {
		required := ""
		if a.Required {
			required = "yes"
		}
		rows = append(rows, []string{
			a.ID,
			a.Name,
			string(a.ValueType),
			strconv.Itoa(len(a.Values)),
			strings.Join(a.AllowedUnits, ", "),
			required,
		})
	}
	return Data{
		Headers:         []string{"ID", "Name", "Type", "Values", "Units", "Required"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft, AlignCenter},
	}
}

// Write formats data in format to w. Structured formats receive raw as
// is; the others receive the human readable rendering.
func Write(w io.Writer, format Format, raw, rendered any) error {
	if w == nil {
		w = os.Stdout
	}
	if format.Structured() {
		return NewFormatter(format).Format(w, raw)
	}
	return NewFormatter(format).Format(w, rendered)
}

func ptr[T any](v T) *T {
	return &v
}
