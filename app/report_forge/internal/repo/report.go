package repo

import (
	"context"

	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

// ReportRepo 报告记录与导出缓存仓库接口
type ReportRepo interface {
	// Create 保存新的生成请求
	Create(ctx context.Context, rec *dm.Record) error
	// Update 更新状态、报告内容与诊断信息
	Update(ctx context.Context, rec *dm.Record) error
	// Get 根据ID获取记录，不存在时返回 NotFound
	Get(ctx context.Context, id string) (*dm.Record, error)
	// List 按创建时间倒序分页
	List(ctx context.Context, page, pageSize int) ([]*dm.Record, int, error)
	// SaveExport 缓存某个格式的导出文件
	SaveExport(ctx context.Context, id string, format dm.Format, content []byte) error
	// GetExport 读取导出缓存，不存在时返回 NotFound
	GetExport(ctx context.Context, id string, format dm.Format) ([]byte, error)
}
