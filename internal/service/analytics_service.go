package service

import (
	"time"

	"github.com/orderdesk/internal/logger"
	"github.com/orderdesk/internal/models"

	"github.com/shopspring/decimal"
)

// AnalyticsService 订单分析服务
// 所有指标都是当前订单快照的纯函数，重复计算结果恒相同。
type AnalyticsService struct {
	loc *time.Location
}

// NewAnalyticsService 创建分析服务；loc 为时间分桶参考时区
func NewAnalyticsService(loc *time.Location) *AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{loc: loc}
}

// MonthlyPoint 月度收入趋势点
type MonthlyPoint struct {
	Key   MonthKey     `json:"key"`
	Total models.Money `json:"total"`
}

// WeeklyIncomePoint 周度收入分布点
type WeeklyIncomePoint struct {
	Key   WeekKey      `json:"key"`
	Value models.Money `json:"value"`
}

// WeeklyCountPoint 周度订单量分布点
type WeeklyCountPoint struct {
	Key   WeekKey `json:"key"`
	Count int     `json:"count"`
}

// Analytics 订单分析结果
// 序列按桶在输入中首次出现的顺序排列（与消费方的图表预期一致），
// 对同一输入完全确定。
type Analytics struct {
	TotalIncome         models.Money        `json:"total_income"`
	TotalOrders         int                 `json:"total_orders"`
	DeliveredCount      int                 `json:"delivered_count"`
	PendingCount        int                 `json:"pending_count"`
	CanceledCount       int                 `json:"canceled_count"`
	TodayDeliveredCount int                 `json:"today_delivered_count"`
	MonthlySeries       []MonthlyPoint      `json:"monthly_series"`
	WeeklyIncomeSeries  []WeeklyIncomePoint `json:"weekly_income_series"`
	WeeklyOrderCounts   []WeeklyCountPoint  `json:"weekly_order_counts"`
}

// ComputeAnalytics 单趟聚合订单快照为 KPI 与趋势序列。
// pending 采用取消感知口径：未送达且未取消；
// 创建时间缺失的订单只跳过分桶序列，平铺 KPI 照常计入；
// 已送达但缺少送达时间的订单计入送达总数，不计入今日送达。
func (s *AnalyticsService) ComputeAnalytics(orders []models.Order, today time.Time) Analytics {
	result := Analytics{
		TotalOrders:        len(orders),
		MonthlySeries:      []MonthlyPoint{},
		WeeklyIncomeSeries: []WeeklyIncomePoint{},
		WeeklyOrderCounts:  []WeeklyCountPoint{},
	}

	income := decimal.Zero
	monthIndex := map[MonthKey]int{}
	weekIndex := map[WeekKey]int{}

	for i := range orders {
		o := &orders[i]

		amount := o.TotalPrice.Decimal
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		income = income.Add(amount)

		// 三分类互斥：送达优先于取消，保证三者之和不超过订单总数
		switch {
		case o.IsDelivered:
			result.DeliveredCount++
		case o.IsCanceled:
			result.CanceledCount++
		default:
			result.PendingCount++
		}

		if deliveredAt := o.EffectiveDeliveredAt(); deliveredAt != nil && sameDay(*deliveredAt, today, s.loc) {
			result.TodayDeliveredCount++
		}

		if o.CreatedAt.IsZero() {
			logger.Debugw("analytics_bucket_skip", "order_id", o.ID)
			continue
		}

		mk := monthKeyOf(o.CreatedAt, s.loc)
		if idx, ok := monthIndex[mk]; ok {
			result.MonthlySeries[idx].Total = result.MonthlySeries[idx].Total.Add(models.NewMoneyFromDecimal(amount))
		} else {
			monthIndex[mk] = len(result.MonthlySeries)
			result.MonthlySeries = append(result.MonthlySeries, MonthlyPoint{Key: mk, Total: models.NewMoneyFromDecimal(amount)})
		}

		wk := weekKeyOf(o.CreatedAt, s.loc)
		if idx, ok := weekIndex[wk]; ok {
			result.WeeklyIncomeSeries[idx].Value = result.WeeklyIncomeSeries[idx].Value.Add(models.NewMoneyFromDecimal(amount))
			result.WeeklyOrderCounts[idx].Count++
		} else {
			weekIndex[wk] = len(result.WeeklyIncomeSeries)
			result.WeeklyIncomeSeries = append(result.WeeklyIncomeSeries, WeeklyIncomePoint{Key: wk, Value: models.NewMoneyFromDecimal(amount)})
			result.WeeklyOrderCounts = append(result.WeeklyOrderCounts, WeeklyCountPoint{Key: wk, Count: 1})
		}
	}

	result.TotalIncome = models.NewMoneyFromDecimal(income)
	return result
}
