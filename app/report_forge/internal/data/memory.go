package data

import (
	"context"
	"sort"
	"sync"

	"github.com/go-kratos/kratos/v2/errors"

	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

// memoryRepo 进程内存储，重启后丢失
type memoryRepo struct {
	mu      sync.RWMutex
	records map[string]dm.Record
	exports map[string]map[dm.Format][]byte
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		records: make(map[string]dm.Record),
		exports: make(map[string]map[dm.Format][]byte),
	}
}

func (r *memoryRepo) Create(_ context.Context, rec *dm.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ID]; ok {
		return errors.Conflict("REPORT_EXISTS", "report already exists")
	}
	r.records[rec.ID] = *rec
	return nil
}

func (r *memoryRepo) Update(_ context.Context, rec *dm.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ID]; !ok {
		return errors.NotFound("REPORT_NOT_FOUND", "report not found")
	}
	r.records[rec.ID] = *rec
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id string) (*dm.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, errors.NotFound("REPORT_NOT_FOUND", "report not found")
	}
	return &rec, nil
}

func (r *memoryRepo) List(_ context.Context, page, pageSize int) ([]*dm.Record, int, error) {
	r.mu.RLock()
	all := make([]*dm.Record, 0, len(r.records))
	for _, rec := range r.records {
		rec := rec
		all = append(all, &rec)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	offset := (page - 1) * pageSize
	if offset >= len(all) {
		return []*dm.Record{}, len(all), nil
	}
	end := offset + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (r *memoryRepo) SaveExport(_ context.Context, id string, format dm.Format, content []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return errors.NotFound("REPORT_NOT_FOUND", "report not found")
	}
	if r.exports[id] == nil {
		r.exports[id] = make(map[dm.Format][]byte)
	}
	r.exports[id][format] = append([]byte(nil), content...)
	return nil
}

func (r *memoryRepo) GetExport(_ context.Context, id string, format dm.Format) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	content, ok := r.exports[id][format]
	if !ok {
		return nil, errors.NotFound("EXPORT_NOT_FOUND", "export not rendered yet")
	}
	return content, nil
}
