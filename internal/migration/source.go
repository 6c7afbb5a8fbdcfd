package migration

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"gorm.io/gorm"
)

// Source 迁移来源
type Source interface {
	Migrations() ([]Migration, error)
}

// Registry 显式注册的迁移列表（编译期确定）
type Registry struct {
	mu    sync.Mutex
	items map[string]Migration
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Migration)}
}

// Register 注册迁移；名称为空、缺少 Up 或重名属于编程错误，直接 panic
func (r *Registry) Register(m Migration) {
	if strings.TrimSpace(m.Name) == "" {
		panic("migration: 迁移名称不能为空")
	}
	if m.Up == nil {
		panic(fmt.Sprintf("migration: 迁移 %s 缺少 Up", m.Name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[m.Name]; ok {
		panic(fmt.Sprintf("migration: %v: %s", ErrDuplicateMigration, m.Name))
	}
	r.items[m.Name] = m
}

// Migrations 按名称升序返回已注册的迁移
func (r *Registry) Migrations() ([]Migration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Migration, 0, len(r.items))
	for _, m := range r.items {
		out = append(out, m)
	}
	return Sorted(out), nil
}

const (
	upSuffix       = ".up.sql"
	downSuffix     = ".down.sql"
	requiresPrefix = "-- requires:"
)

// DirSource 从目录读取 SQL 迁移：<name>.up.sql 与可选的 <name>.down.sql。
// 其他文件忽略。语句以行尾分号分隔；"-- requires: a, b" 声明前置表。
type DirSource struct {
	FS  fs.FS
	Dir string
}

// NewOSDirSource 从本地目录读取
func NewOSDirSource(dir string) DirSource {
	return DirSource{FS: os.DirFS(dir), Dir: "."}
}

// Migrations 读取目录并返回按名称排序的迁移；目录不可读时返回错误
func (s DirSource) Migrations() ([]Migration, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	entries, err := fs.ReadDir(s.FS, dir)
	if err != nil {
		return nil, fmt.Errorf("读取迁移目录 %s 失败: %w", dir, err)
	}

	ups := make(map[string]string)
	downs := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		file := e.Name()
		switch {
		case strings.HasSuffix(file, upSuffix):
			ups[strings.TrimSuffix(file, upSuffix)] = path.Join(dir, file)
		case strings.HasSuffix(file, downSuffix):
			downs[strings.TrimSuffix(file, downSuffix)] = path.Join(dir, file)
		}
	}
	for name := range downs {
		if _, ok := ups[name]; !ok {
			return nil, fmt.Errorf("迁移 %s 只有 down 文件，缺少 %s%s", name, name, upSuffix)
		}
	}

	out := make([]Migration, 0, len(ups))
	for name, upPath := range ups {
		upScript, err := s.readScript(upPath)
		if err != nil {
			return nil, err
		}
		m := Migration{
			Name:        name,
			Description: "SQL " + path.Base(upPath),
			Requires:    upScript.requires,
			Up:          execStatements(upScript.statements),
		}
		if downPath, ok := downs[name]; ok {
			downScript, err := s.readScript(downPath)
			if err != nil {
				return nil, err
			}
			m.Down = execStatements(downScript.statements)
		}
		out = append(out, m)
	}
	return Sorted(out), nil
}

type sqlScript struct {
	statements []string
	requires   []string
}

func (s DirSource) readScript(p string) (*sqlScript, error) {
	b, err := fs.ReadFile(s.FS, p)
	if err != nil {
		return nil, fmt.Errorf("读取迁移文件 %s 失败: %w", p, err)
	}
	script := parseScript(string(b))
	if len(script.statements) == 0 {
		return nil, fmt.Errorf("迁移文件 %s 不包含 SQL 语句", p)
	}
	return script, nil
}

// parseScript 按行尾分号切分语句，丢弃纯注释行
func parseScript(content string) *sqlScript {
	script := &sqlScript{}
	var buf strings.Builder

	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(strings.ToLower(line), requiresPrefix) {
			for _, t := range strings.Split(line[len(requiresPrefix):], ",") {
				if t = strings.TrimSpace(t); t != "" {
					script.requires = append(script.requires, t)
				}
			}
			continue
		}
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)
		if strings.HasSuffix(line, ";") {
			script.statements = append(script.statements, buf.String())
			buf.Reset()
		}
	}
	if rest := strings.TrimSpace(buf.String()); rest != "" {
		script.statements = append(script.statements, rest)
	}
	return script
}

func execStatements(statements []string) StepFunc {
	return func(ctx context.Context, tx *gorm.DB) error {
		for i, stmt := range statements {
			if err := tx.WithContext(ctx).Exec(stmt).Error; err != nil {
				return fmt.Errorf("执行第 %d 条语句失败: %w", i+1, err)
			}
		}
		return nil
	}
}

// Load 合并多个来源，拒绝重名，返回按名称排序的列表
func Load(sources ...Source) ([]Migration, error) {
	seen := make(map[string]struct{})
	var all []Migration
	for _, src := range sources {
		ms, err := src.Migrations()
		if err != nil {
			return nil, err
		}
		for _, m := range ms {
			if _, ok := seen[m.Name]; ok {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateMigration, m.Name)
			}
			seen[m.Name] = struct{}{}
			all = append(all, m)
		}
	}
	return Sorted(all), nil
}
