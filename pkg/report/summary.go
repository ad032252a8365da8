package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"useretl/pkg/models"
)

// Summary holds the aggregates computed over one run's batch
type Summary struct {
	Count      int
	AverageAge decimal.Decimal
	Genders    map[string]int
	Countries  map[string]int
}

// Summarize aggregates a batch. An empty batch has an average age of zero.
func Summarize(batch []models.UserInfo) Summary {
	s := Summary{
		Count:      len(batch),
		AverageAge: decimal.Zero,
		Genders:    make(map[string]int),
		Countries:  make(map[string]int),
	}
	if len(batch) == 0 {
		return s
	}

	total := decimal.Zero
	for _, u := range batch {
		total = total.Add(decimal.NewFromInt(int64(u.Age)))
		s.Genders[u.Gender]++
		s.Countries[u.Country]++
	}
	s.AverageAge = total.Div(decimal.NewFromInt(int64(len(batch))))

	return s
}

// Print writes the three aggregates
func Print(w io.Writer, s Summary) error {
	_, err := fmt.Fprintf(w,
		"Average Age: %s\nGender Distribution: %s\nUser Counts by Country: %s\n",
		s.AverageAge.Round(2).String(),
		formatCounts(s.Genders),
		formatCounts(s.Countries))
	return err
}

// Entry is one label and its count
type Entry struct {
	Label string
	Count int
}

// Sorted returns counts ordered by count descending, then label ascending
func Sorted(counts map[string]int) []Entry {
	entries := make([]Entry, 0, len(counts))
	for label, n := range counts {
		entries = append(entries, Entry{Label: label, Count: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Label < entries[j].Label
	})
	return entries
}

func formatCounts(counts map[string]int) string {
	parts := make([]string, 0, len(counts))
	for _, e := range Sorted(counts) {
		parts = append(parts, fmt.Sprintf("%s: %d", e.Label, e.Count))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
