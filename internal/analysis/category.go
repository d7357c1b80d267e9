package analysis

import (
	"math"
	"sort"

	"github.com/siyabuilds/carbontrackr/internal/domain"
)

// AnalyzeCategories ranks categories by total emissions and returns the
// highest and lowest. Both are nil when there are no categories; with a
// single category they describe the same one. Equal totals fall back to
// category name order so the result is deterministic.
func AnalyzeCategories(totals map[domain.Category]float64, counts map[domain.Category]int) (highest, lowest *domain.CategoryStat) {
	if len(totals) == 0 {
		return nil, nil
	}

	ranked := make([]domain.Category, 0, len(totals))
	for category := range totals {
		ranked = append(ranked, category)
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i] < ranked[j] })
	sort.SliceStable(ranked, func(i, j int) bool { return totals[ranked[i]] > totals[ranked[j]] })

	stat := func(category domain.Category) *domain.CategoryStat {
		return &domain.CategoryStat{
			Category:      category,
			Emissions:     round(totals[category], 2),
			ActivityCount: counts[category],
		}
	}
	return stat(ranked[0]), stat(ranked[len(ranked)-1])
}

func round(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}
