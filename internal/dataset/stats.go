package dataset

import (
	"fmt"
	"sort"

	"github.com/winelabs/wineserve/internal/models"
)

const histogramBuckets = 10

// Stats summarises a wine dataset for the dashboard: quality label counts,
// wine type counts, and a fixed-bucket histogram of alcohol content.
func Stats(f *Frame) (models.DataStats, error) {
	quality, err := f.LabelColumn(models.TargetColumn)
	if err != nil {
		return models.DataStats{}, err
	}
	types, err := f.StringColumn("type")
	if err != nil {
		return models.DataStats{}, err
	}
	alcohol, err := f.FloatColumn("alcohol")
	if err != nil {
		return models.DataStats{}, err
	}

	return models.DataStats{
		Success:             true,
		QualityDistribution: labelDistribution(quality),
		TypeDistribution:    categoryDistribution(types),
		AlcoholDistribution: histogram(alcohol, histogramBuckets),
		TotalSamples:        f.NumRows(),
	}, nil
}

func labelDistribution(labels []int) models.Distribution {
	counts := map[int]int{}
	for _, l := range labels {
		counts[l]++
	}
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	dist := models.Distribution{}
	for _, k := range keys {
		dist.Labels = append(dist.Labels, fmt.Sprintf("%d", k))
		dist.Values = append(dist.Values, counts[k])
	}
	return dist
}

func categoryDistribution(values []string) models.Distribution {
	counts := map[string]int{}
	for _, v := range values {
		counts[v]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	// Most frequent first, ties resolved alphabetically for stable output.
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	dist := models.Distribution{}
	for _, k := range keys {
		dist.Labels = append(dist.Labels, k)
		dist.Values = append(dist.Values, counts[k])
	}
	return dist
}

func histogram(values []float64, buckets int) models.Distribution {
	dist := models.Distribution{}
	if len(values) == 0 || buckets <= 0 {
		return dist
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	width := (hi - lo) / float64(buckets)
	if width == 0 {
		dist.Labels = append(dist.Labels, fmt.Sprintf("%.1f-%.1f", lo, hi))
		dist.Values = append(dist.Values, len(values))
		return dist
	}

	counts := make([]int, buckets)
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= buckets {
			idx = buckets - 1
		}
		counts[idx]++
	}
	for i := 0; i < buckets; i++ {
		start := lo + float64(i)*width
		dist.Labels = append(dist.Labels, fmt.Sprintf("%.1f-%.1f", start, start+width))
		dist.Values = append(dist.Values, counts[i])
	}
	return dist
}
