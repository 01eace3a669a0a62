package services

import (
	"sort"
	"strings"

	"adminpanel/internal/livesync"
	"adminpanel/internal/models"
)

const (
	// LowStockThreshold is the highest stock still reported as low.
	LowStockThreshold = 10
	// HighStockThreshold is the lowest stock reported as unusually high.
	HighStockThreshold = 100

	dashboardListSize = 5
)

// DashboardSummary is the overview shown on the landing page.
type DashboardSummary struct {
	TotalUsers     int              `json:"totalUsers"`
	TotalProducts  int              `json:"totalProducts"`
	InventoryValue float64          `json:"inventoryValue"`
	AveragePrice   float64          `json:"averagePrice"`
	LowStock       []models.Product `json:"lowStock"`
	HighStock      []models.Product `json:"highStock"`
	LatestUsers    []models.User    `json:"latestUsers"`
	LatestProducts []models.Product `json:"latestProducts"`
}

// DashboardService computes the summary from the synchronized collections.
type DashboardService struct {
	products *livesync.Synchronizer[models.Product]
	users    *livesync.Synchronizer[models.User]
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(products *livesync.Synchronizer[models.Product], users *livesync.Synchronizer[models.User]) *DashboardService {
	return &DashboardService{products: products, users: users}
}

// Summary returns the current overview. It fails with *SyncError if either
// collection failed and with ErrLoading while either is still loading.
func (s *DashboardService) Summary() (DashboardSummary, error) {
	ps, us := s.products.Snapshot(), s.users.Snapshot()
	if ps.State == livesync.Failed {
		return DashboardSummary{}, &SyncError{Collection: models.ProductsCollection, Message: ps.Message}
	}
	if us.State == livesync.Failed {
		return DashboardSummary{}, &SyncError{Collection: models.UsersCollection, Message: us.Message}
	}
	if ps.State == livesync.Loading || us.State == livesync.Loading {
		return DashboardSummary{}, ErrLoading
	}
	return Summarize(ps.Records, us.Records), nil
}

// Summarize computes the overview of products and users in snapshot order.
func Summarize(products []models.Product, users []models.User) DashboardSummary {
	sum := DashboardSummary{
		TotalUsers:     len(users),
		TotalProducts:  len(products),
		LowStock:       []models.Product{},
		HighStock:      []models.Product{},
		LatestProducts: firstN(products, dashboardListSize),
	}

	var prices float64
	for _, p := range products {
		sum.InventoryValue += p.Price * float64(p.Stock)
		prices += p.Price
		if p.Stock > 0 && p.Stock <= LowStockThreshold && len(sum.LowStock) < dashboardListSize {
			sum.LowStock = append(sum.LowStock, p)
		}
		if p.Stock >= HighStockThreshold && len(sum.HighStock) < dashboardListSize {
			sum.HighStock = append(sum.HighStock, p)
		}
	}
	if len(products) > 0 {
		sum.AveragePrice = prices / float64(len(products))
	}

	byName := append([]models.User(nil), users...)
	sort.SliceStable(byName, func(i, j int) bool {
		return strings.ToLower(byName[i].Name) < strings.ToLower(byName[j].Name)
	})
	sum.LatestUsers = firstN(byName, dashboardListSize)
	return sum
}

func firstN[T any](items []T, n int) []T {
	if len(items) < n {
		n = len(items)
	}
	return append(make([]T, 0, n), items[:n]...)
}
