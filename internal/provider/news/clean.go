package news

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/okian/compintel/internal/domain/model"
)

// removedSuffix is the truncation marker the search API appends to content.
const removedSuffix = "[Removed]"

// Clean strips markup from titles and summaries, drops items without a
// title and removes duplicates by link, then by title. Order is preserved.
func Clean(items []model.RawItem) []model.RawItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]model.RawItem, 0, len(items))
	for _, it := range items {
		it.Title = Text(it.Title)
		it.Summary = Text(it.Summary)
		if it.Title == "" || it.Title == removedSuffix {
			continue
		}
		key := it.Link
		if key == "" {
			key = strings.ToLower(it.Title)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Text returns the visible text of an HTML fragment with whitespace collapsed.
func Text(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
