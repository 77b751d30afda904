package service

import (
	"sort"
	"strings"

	"github.com/orderdesk/internal/constants"
	"github.com/orderdesk/internal/models"
)

// FilterAndSort 生成订单快照的派生视图：先过滤，再稳定排序。
// 纯函数，不修改输入；同样的输入总是得到同样的列表。
// 未识别的过滤/排序条件按 all / newest 处理。
func FilterAndSort(orders []models.Order, filter, sortBy string) []models.Order {
	view := make([]models.Order, 0, len(orders))
	match := orderFilterFunc(filter)
	for i := range orders {
		if match(&orders[i]) {
			view = append(view, orders[i])
		}
	}

	switch normalizeOrderSort(sortBy) {
	case constants.OrderSortOldest:
		sort.SliceStable(view, func(i, j int) bool {
			return view[i].CreatedAt.Before(view[j].CreatedAt)
		})
	case constants.OrderSortPriceHigh:
		sort.SliceStable(view, func(i, j int) bool {
			return view[i].TotalPrice.GreaterThan(view[j].TotalPrice.Decimal)
		})
	case constants.OrderSortPriceLow:
		sort.SliceStable(view, func(i, j int) bool {
			return view[i].TotalPrice.LessThan(view[j].TotalPrice.Decimal)
		})
	default: // newest
		sort.SliceStable(view, func(i, j int) bool {
			return view[i].CreatedAt.After(view[j].CreatedAt)
		})
	}
	return view
}

func orderFilterFunc(filter string) func(*models.Order) bool {
	switch strings.ToLower(strings.TrimSpace(filter)) {
	case constants.OrderFilterPaid:
		return func(o *models.Order) bool { return o.IsPaid }
	case constants.OrderFilterUnpaid:
		return func(o *models.Order) bool { return !o.IsPaid }
	case constants.OrderFilterDelivered:
		return func(o *models.Order) bool { return o.IsDelivered }
	case constants.OrderFilterPending:
		// 与 KPI 口径一致：未送达且未取消
		return func(o *models.Order) bool { return !o.IsDelivered && !o.IsCanceled }
	case constants.OrderFilterCanceled:
		return func(o *models.Order) bool { return o.IsCanceled }
	case constants.OrderFilterAssigned:
		return func(o *models.Order) bool { return o.IsAssigned() }
	default:
		return func(*models.Order) bool { return true }
	}
}

func normalizeOrderSort(sortBy string) string {
	switch strings.ToLower(strings.TrimSpace(sortBy)) {
	case constants.OrderSortOldest:
		return constants.OrderSortOldest
	case constants.OrderSortPriceHigh:
		return constants.OrderSortPriceHigh
	case constants.OrderSortPriceLow:
		return constants.OrderSortPriceLow
	default:
		return constants.OrderSortNewest
	}
}
