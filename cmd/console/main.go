package main

import (
	"time"

	"github.com/orderdesk/internal/config"
	"github.com/orderdesk/internal/constants"
	"github.com/orderdesk/internal/logger"
	"github.com/orderdesk/internal/models"
	"github.com/orderdesk/internal/repository"
	"github.com/orderdesk/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	log := logger.S()

	if err := models.InitDB(cfg.Datasource.Driver, cfg.Datasource.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Datasource.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Datasource.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Datasource.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Datasource.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		log.Fatalw("datasource_connect_failed", "error", err)
	}
	if err := models.AutoMigrate(); err != nil {
		log.Fatalw("datasource_migrate_failed", "error", err)
	}

	if err := seedSampleBook(); err != nil {
		log.Fatalw("seed_failed", "error", err)
	}

	source := repository.NewOrderSource(models.DB)
	orders, err := source.ListOrders(repository.ListScope{Role: constants.RoleAdmin})
	if err != nil {
		log.Fatalw("list_orders_failed", "error", err)
	}

	analytics := service.NewAnalyticsService(cfg.Analytics.Location())
	report := analytics.ComputeAnalytics(orders, time.Now())
	log.Infow("analytics_overview",
		"total_income", report.TotalIncome.String(),
		"total_orders", report.TotalOrders,
		"delivered", report.DeliveredCount,
		"pending", report.PendingCount,
		"canceled", report.CanceledCount,
		"today_delivered", report.TodayDeliveredCount,
	)
	for _, point := range report.MonthlySeries {
		log.Infow("monthly_revenue", "month", point.Key.String(), "total", point.Total.String())
	}
	for i := range report.WeeklyIncomeSeries {
		log.Infow("weekly_distribution",
			"week", report.WeeklyIncomeSeries[i].Key.String(),
			"income", report.WeeklyIncomeSeries[i].Value.String(),
			"orders", report.WeeklyOrderCounts[i].Count,
		)
	}

	pending := service.FilterAndSort(orders, constants.OrderFilterPending, constants.OrderSortPriceHigh)
	for _, o := range pending {
		log.Infow("pending_order",
			"order_id", o.ID,
			"customer", o.CustomerName,
			"total", o.TotalPrice.String(),
			"state", service.WorkflowState(&o),
		)
	}
}

// seedSampleBook 空库时写入演示订单，便于本地验证指标口径
func seedSampleBook() error {
	var count int64
	if err := models.DB.Model(&models.Order{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	partner := models.User{
		ID:    uuid.NewString(),
		Name:  "Sample Partner",
		Email: "partner@orderdesk.local",
		Role:  constants.RoleDelivery,
	}
	if err := models.DB.Create(&partner).Error; err != nil {
		return err
	}

	now := time.Now()
	deliveredAt := now.Add(-26 * time.Hour)
	orders := []models.Order{
		{
			ID:              uuid.NewString(),
			CustomerName:    "Asha Rao",
			TotalPrice:      models.NewMoneyFromDecimal(decimal.NewFromInt(1499)),
			PaymentMethod:   constants.PaymentMethodPrepaid,
			IsPaid:          true,
			ShippingAddress: "12 MG Road, Bengaluru",
			CreatedAt:       now.AddDate(0, -2, -3),
		},
		{
			ID:              uuid.NewString(),
			CustomerName:    "Vikram Shetty",
			TotalPrice:      models.NewMoneyFromDecimal(decimal.NewFromInt(749)),
			PaymentMethod:   constants.PaymentMethodCOD,
			IsPaid:          true,
			IsDelivered:     true,
			DeliveredAt:     &deliveredAt,
			AssignedTo:      &partner.ID,
			ShippingAddress: "4 Residency Road, Bengaluru",
			CreatedAt:       now.AddDate(0, -1, -10),
		},
		{
			ID:            uuid.NewString(),
			CustomerName:  "Neha Iyer",
			TotalPrice:    models.NewMoneyFromDecimal(decimal.NewFromInt(260)),
			PaymentMethod: constants.PaymentMethodCOD,
			IsCanceled:    true,
			CancelReason:  "customer unreachable",
			CreatedAt:     now.AddDate(0, 0, -6),
		},
		{
			ID:              uuid.NewString(),
			CustomerName:    "Rahul Menon",
			TotalPrice:      models.NewMoneyFromDecimal(decimal.NewFromInt(980)),
			PaymentMethod:   constants.PaymentMethodCOD,
			ShippingAddress: "77 Brigade Road, Bengaluru",
			CreatedAt:       now.AddDate(0, 0, -2),
		},
	}
	for i := range orders {
		if err := models.DB.Create(&orders[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
