// Package source 发现并读取配置目录中的端点文档，解析后交给 Validate
package source

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/jmx-collector/pkg/model"
)

// 处理阶段，出现在 SourceError 与日志中
const (
	StageRead     = "read"
	StageParse    = "parse"
	StageValidate = "validate"
)

// SourceError 单个配置文件失败，只跳过该文件
type SourceError struct {
	Path  string
	Stage string
	Err   error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %s: %v", e.Path, e.Stage, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Loader 基于 afero 访问配置目录，生产环境为 OsFs，测试用 MemMapFs
type Loader struct {
	fs  afero.Fs
	dir string
}

// NewLoader 创建 Loader
func NewLoader(fs afero.Fs, dir string) *Loader {
	return &Loader{fs: fs, dir: dir}
}

// Dir 配置目录
func (l *Loader) Dir() string { return l.dir }

// Discover 列出目录下的配置文件，按文件名排序；只跳过隐藏文件和子目录
// 任意扩展名都会被加载，非 .yaml/.yml 的文件按 JSON 解析，解析失败由 Load 报告
func (l *Loader) Discover() ([]string, error) {
	infos, err := afero.ReadDir(l.fs, l.dir)
	if err != nil {
		return nil, fmt.Errorf("list config dir %s: %w", l.dir, err)
	}
	paths := make([]string, 0, len(infos))
	for _, fi := range infos {
		name := fi.Name()
		if fi.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		paths = append(paths, filepath.Join(l.dir, name))
	}
	return paths, nil
}

// Load 读取、解析并校验单个文件
func (l *Loader) Load(path string) (model.ConfigRecord, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return model.ConfigRecord{}, &SourceError{Path: path, Stage: StageRead, Err: err}
	}
	doc, err := Parse(path, data)
	if err != nil {
		return model.ConfigRecord{}, &SourceError{Path: path, Stage: StageParse, Err: err}
	}
	rec, err := Validate(doc)
	if err != nil {
		return model.ConfigRecord{}, &SourceError{Path: path, Stage: StageValidate, Err: err}
	}
	rec.Source = path
	return rec, nil
}

// Parse 按扩展名把文档解析为通用结构，未知扩展名按 JSON 处理
func Parse(name string, data []byte) (any, error) {
	var doc any
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, err
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("empty document")
	}
	return doc, nil
}
