package dto

import "github.com/ttvtimotheus/dsbbutbetter/internal/model"

// ── DSB 课表采集 ──

// ParsePlanRequest 课表采集请求（DSBmobile 凭据）
type ParsePlanRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SpecificPlanRequest 指定计划采集请求
type SpecificPlanRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	PlanURL  string `json:"plan_url" binding:"required,url"`
}

// TimetableResponse 课表响应
// FromCache 标记结果是否来自缓存回退
type TimetableResponse struct {
	Timetable        *model.Timetable `json:"timetable"`
	AvailablePlans   []model.PlanRef  `json:"available_plans"`
	AvailableClasses []string         `json:"available_classes"`
	LastUpdated      string           `json:"last_updated"`
	Status           string           `json:"status"`
	FromCache        bool             `json:"from_cache"`
}
