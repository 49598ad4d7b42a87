package output

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/Aman-CERP/amanfind/internal/search"
)

// Results prints search results as an aligned table. With explain on, the
// query plan is printed first and each row is followed by its score
// breakdown.
func (w *Writer) Results(results []*search.Result, explain bool) {
	if len(results) == 0 {
		w.Status(w.paint(ansiDim, "·"), "No results")
		return
	}

	if explain && results[0].Explain != nil {
		w.Explain(results[0].Explain)
	}

	tw := tabwriter.NewWriter(w.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, w.paint(ansiBold, "#\tID\tNAME\tTYPE\tSIZE\tSCORE\tMATCH"))
	for i, r := range results {
		_, _ = fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%.0f\t%s\n",
			i+1, r.ID, r.Name, r.Type, HumanSize(r.Size), r.Score, r.MatchType)
		if explain && r.Breakdown != nil {
			b := r.Breakdown
			_, _ = fmt.Fprintf(tw, "\t\t%s\t\t\t\t\n", w.paint(ansiDim, fmt.Sprintf(
				"base=%.0f name=%.0f interaction=%.0f recency=%.0f prior=%.0f",
				b.Base, b.Name, b.Interaction, b.Recency, b.PriorQuery)))
		}
	}
	_ = tw.Flush()
}

// Explain prints how a query was interpreted.
func (w *Writer) Explain(e *search.ExplainData) {
	_, _ = fmt.Fprintf(w.out, "query:      %q\n", e.Query)
	_, _ = fmt.Fprintf(w.out, "terms:      %q\n", e.Terms)
	if e.FilterText != "" {
		_, _ = fmt.Fprintf(w.out, "filters:    %s\n", e.FilterText)
	}
	if e.ImplicitType != "" {
		_, _ = fmt.Fprintf(w.out, "type from:  %s\n", e.ImplicitType)
	}
	if len(e.Expansions) > 0 {
		_, _ = fmt.Fprintf(w.out, "expansions: %s\n", strings.Join(e.Expansions, ", "))
	}
	if e.UseFuzzy {
		_, _ = fmt.Fprintf(w.out, "fuzzy:      distance <= %d\n", e.MaxDistance)
	}

	kinds := make([]string, 0, len(e.Candidates))
	for mt, n := range e.Candidates {
		kinds = append(kinds, fmt.Sprintf("%s=%d", mt, n))
	}
	slices.Sort(kinds)
	_, _ = fmt.Fprintf(w.out, "candidates: %s (after filters: %d)\n\n", strings.Join(kinds, " "), e.Survivors)
}

// Suggestions prints one suggestion per line.
func (w *Writer) Suggestions(sugs []search.Suggestion) {
	for _, s := range sugs {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", s.Name, w.paint(ansiDim, fmt.Sprintf("(%s, id %d)", s.Type, s.ID)))
	}
}

// HumanSize formats a byte count using 1024-based units, matching the
// @size: filter.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	units := []string{"KB", "MB", "GB", "TB"}
	v := float64(n) / unit
	i := 0
	for v >= unit && i < len(units)-1 {
		v /= unit
		i++
	}
	return fmt.Sprintf("%.1f%s", v, units[i])
}
