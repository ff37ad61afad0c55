package pipeline

import (
	"sort"
	"strings"

	"github.com/bowenaidan/fantasy-hoops/internal/models"
)

// ManagerTotals sums standings rows per manager, highest points first, ties by
// manager name. Rows without a manager are grouped under "".
func ManagerTotals(rows []*models.StandingsRow) []models.ManagerTotal {
	byManager := make(map[string]*models.ManagerTotal)
	for _, row := range rows {
		manager := strings.TrimSpace(row.Manager)
		total, ok := byManager[manager]
		if !ok {
			total = &models.ManagerTotal{Manager: manager}
			byManager[manager] = total
		}
		total.Teams++
		total.Points += row.Points
		total.PointsToday += row.PointsToday
	}

	out := make([]models.ManagerTotal, 0, len(byManager))
	for _, total := range byManager {
		out = append(out, *total)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].Manager < out[j].Manager
	})
	return out
}
