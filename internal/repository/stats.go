package repository

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/axonhq/axon/internal/model"
)

const (
	topAttackPaths = 10
	topAttackTypes = 5
)

// Attack type categories for the dashboard summary.
const (
	CategoryWordPress     = "wordpress_scan"
	CategorySensitive     = "sensitive_files"
	CategoryAdmin         = "admin_access"
	CategoryPHP           = "php_exploit"
	CategoryPathTraversal = "path_traversal"
	CategoryOther         = "other"
)

// Counts are the raw totals behind model.Stats.
type Counts struct {
	Total    int64
	Attacks  int64
	Legit    int64
	LastHour int64
}

// PathCount is how often one path was labeled an attack.
type PathCount struct {
	Path  string
	Count int64
}

// CategorizeAttackPath buckets a path by the first matching rule.
func CategorizeAttackPath(path string) string {
	p := strings.ToLower(path)
	switch {
	case strings.Contains(p, "wp-") || strings.Contains(p, "wordpress"):
		return CategoryWordPress
	case strings.Contains(p, ".env") || strings.Contains(p, ".git"):
		return CategorySensitive
	case strings.Contains(p, "admin") || strings.Contains(p, "login"):
		return CategoryAdmin
	case strings.Contains(p, "php"):
		return CategoryPHP
	case strings.Contains(p, "..") || strings.Contains(p, "%2e"):
		return CategoryPathTraversal
	default:
		return CategoryOther
	}
}

// TopAttackTypes sums path counts per category and keeps the largest.
// Ties are broken by category name.
func TopAttackTypes(paths []PathCount, limit int) []model.AttackTypeCount {
	sums := make(map[string]int64)
	for _, pc := range paths {
		sums[CategorizeAttackPath(pc.Path)] += pc.Count
	}

	out := make([]model.AttackTypeCount, 0, len(sums))
	for typ, n := range sums {
		out = append(out, model.AttackTypeCount{Type: typ, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// AttackRate is attacks/total rounded to 3 places, 0 for an empty table.
func AttackRate(attacks, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(attacks)/float64(total)*1000) / 1000
}

// BuildStats assembles the dashboard summary.
func BuildStats(c Counts, topPaths []PathCount, now time.Time) model.Stats {
	return model.Stats{
		TotalRequests:    c.Total,
		AttacksBlocked:   c.Attacks,
		LegitTraffic:     c.Legit,
		AttackRate:       AttackRate(c.Attacks, c.Total),
		RequestsLastHour: c.LastHour,
		TopAttackTypes:   TopAttackTypes(topPaths, topAttackTypes),
		Timestamp:        now.UnixMilli(),
	}
}
