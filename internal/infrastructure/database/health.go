package database

import (
	"context"

	"gorm.io/gorm"
)

// HealthChecker probes database connectivity
type HealthChecker struct {
	db *gorm.DB
}

// NewHealthChecker creates a database health checker
func NewHealthChecker(db *gorm.DB) *HealthChecker {
	return &HealthChecker{db: db}
}

// HealthCheck reports whether the database answers a ping
func (h *HealthChecker) HealthCheck(ctx context.Context) bool {
	sqlDB, err := h.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}
