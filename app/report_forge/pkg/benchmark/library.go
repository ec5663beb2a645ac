package benchmark

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

const (
	exemplarPattern = "*/**/*.md"
	maxExemplarRune = 6000
	reloadDebounce  = 300 * time.Millisecond
)

// Library 参考范例库，目录结构为 <dir>/<report_type>/**/*.md
type Library struct {
	dir string
	log logrus.FieldLogger

	mu    sync.RWMutex
	docs  map[dm.ReportType][]string
	watch *fsnotify.Watcher
}

// NewLibrary 创建范例库，需调用 Load 加载
func NewLibrary(dir string, log logrus.FieldLogger) *Library {
	return &Library{dir: dir, log: log, docs: map[dm.ReportType][]string{}}
}

// Load 扫描目录并替换内存中的范例
func (l *Library) Load() error {
	if l.dir == "" {
		return nil
	}
	fsys := os.DirFS(l.dir)
	matches, err := doublestar.Glob(fsys, exemplarPattern)
	if err != nil {
		return fmt.Errorf("glob exemplars: %w", err)
	}
	sort.Strings(matches)

	docs := make(map[dm.ReportType][]string)
	for _, m := range matches {
		data, err := fs.ReadFile(fsys, m)
		if err != nil {
			l.log.Warnf("读取范例失败 %s: %v", m, err)
			continue
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}
		rt := dm.ReportType(strings.SplitN(m, "/", 2)[0])
		docs[rt] = append(docs[rt], truncateRunes(text, maxExemplarRune))
	}

	l.mu.Lock()
	l.docs = docs
	l.mu.Unlock()
	l.log.Infof("已加载范例 %d 个文件，覆盖 %d 种报告类型", len(matches), len(docs))
	return nil
}

// Exemplar 返回指定报告类型的第一个范例，没有时返回空串
func (l *Library) Exemplar(t dm.ReportType) string {
	if l == nil {
		return ""
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if docs := l.docs[t]; len(docs) > 0 {
		return docs[0]
	}
	return ""
}

// Count 某类型的范例数量
func (l *Library) Count(t dm.ReportType) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.docs[t])
}

// Watch 监听目录变化并重新加载，ctx 结束或 Close 后退出
func (l *Library) Watch(ctx context.Context) error {
	if l.dir == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// fsnotify 不递归，逐个添加子目录
	err = filepath.WalkDir(l.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
	if err != nil {
		w.Close()
		return fmt.Errorf("watch exemplars: %w", err)
	}

	l.mu.Lock()
	l.watch = w
	l.mu.Unlock()

	go l.loop(ctx, w)
	return nil
}

func (l *Library) loop(ctx context.Context, w *fsnotify.Watcher) {
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			w.Close()
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.Add(ev.Name)
				}
			}
			if path.Ext(filepath.ToSlash(ev.Name)) != ".md" && !ev.Has(fsnotify.Remove) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			l.log.Warnf("范例目录监听错误: %v", err)
		case <-fire:
			fire = nil
			if err := l.Load(); err != nil {
				l.log.Errorf("重新加载范例失败: %v", err)
			}
		}
	}
}

// Close 停止监听
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watch == nil {
		return nil
	}
	err := l.watch.Close()
	l.watch = nil
	return err
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
