package sink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"
	"github.com/spf13/afero"

	"github.com/jmx-collector/pkg/model"
)

// ErrClosed sink 已关闭
var ErrClosed = errors.New("sink: closed")

func openFile(fs afero.Fs, path string, flag int) (afero.File, error) {
	if path == "" {
		return nil, errors.New("empty path")
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create dir for %s: %w", path, err)
	}
	return fs.OpenFile(path, flag, 0644)
}

// JSONLSink 每行一个 JSON 事件，追加写入
type JSONLSink struct {
	mu     sync.Mutex
	file   afero.File
	buf    *bufio.Writer
	enc    *json.Encoder
	closed bool
}

func NewJSONLSink(fs afero.Fs, path string) (*JSONLSink, error) {
	f, err := openFile(fs, path, os.O_CREATE|os.O_WRONLY|os.O_APPEND)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)
	return &JSONLSink{file: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

func (s *JSONLSink) Emit(_ context.Context, e model.MetricEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.enc.Encode(e); err != nil {
		return err
	}
	// 每个事件落盘，进程崩溃时不丢已发出的事件
	return s.buf.Flush()
}

func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.buf.Flush(), s.file.Close())
}

// eventRow parquet 中的一行
type eventRow struct {
	TimestampMs int64    `parquet:"timestamp_ms"`
	Host        string   `parquet:"host,dict"`
	Path        string   `parquet:"path,dict"`
	Type        string   `parquet:"type,dict"`
	MetricPath  string   `parquet:"metric_path"`
	ValueNumber *float64 `parquet:"metric_value_number,optional"`
	ValueString *string  `parquet:"metric_value_string,optional"`
}

func toRow(e model.MetricEvent) eventRow {
	return eventRow{
		TimestampMs: e.Timestamp.UnixMilli(),
		Host:        e.Host,
		Path:        e.Path,
		Type:        e.Type,
		MetricPath:  e.MetricPath,
		ValueNumber: e.ValueNumber,
		ValueString: e.ValueString,
	}
}

// ParquetSink 列式归档，文件在 Close 时写完 footer 才可读
type ParquetSink struct {
	mu     sync.Mutex
	file   afero.File
	writer *parquet.GenericWriter[eventRow]
	closed bool
}

func NewParquetSink(fs afero.Fs, path string) (*ParquetSink, error) {
	f, err := openFile(fs, path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		return nil, err
	}
	return &ParquetSink{
		file:   f,
		writer: parquet.NewGenericWriter[eventRow](f),
	}, nil
}

func (s *ParquetSink) Emit(_ context.Context, e model.MetricEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	_, err := s.writer.Write([]eventRow{toRow(e)})
	return err
}

func (s *ParquetSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.writer.Close(); err != nil {
		_ = s.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return s.file.Close()
}
