package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

//Validate 规则说明
//字段	已通过 tag 校验	额外业务校验
//Server.Addr	hostname_port	net.ResolveTCPAddr
//Collect.Path	required	必须是已存在的目录（启动前检查，失败即退出）
//Collect.PollingFrequency	gt=0	>= 1s
//Sink.Outputs	oneof	文件类输出必须配置路径，且不能重复
//Log.Path	required	可写目录，自动创建

// Validate HTTP服务配置校验
func (h *ServerConfig) Validate() error {
	if err := valid.Struct(h); err != nil {
		return err
	}
	if h.Addr == "" {
		return errors.New("server.addr cannot be empty")
	}
	// 	用net包解析地址，验证格式合法性
	if _, err := net.ResolveTCPAddr("tcp", h.Addr); err != nil {
		return fmt.Errorf("server.addr format invalid (expected: :port or ip:port), got %s: %w", h.Addr, err)
	}
	return nil
}

// Validate 采集配置校验，配置目录不可用属于启动期致命错误
func (c *CollectConfig) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	if c.PollingFrequency < time.Second {
		return fmt.Errorf("collect.polling_frequency must be at least 1s, got %s", c.PollingFrequency)
	}
	stat, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("collect.path %s is not usable: %w", c.Path, err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("collect.path %s is not a directory", c.Path)
	}
	return nil
}

// Validate 输出配置校验
func (s *SinkConfig) Validate() error {
	if err := valid.Struct(s); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, out := range s.Outputs {
		// 重复项检查
		if seen[out] {
			return fmt.Errorf("sink.outputs duplicated entry: %q", out)
		}
		seen[out] = true

		switch out {
		case "jsonl":
			if strings.TrimSpace(s.JSONL.Path) == "" {
				return errors.New("sink.jsonl.path cannot be empty when jsonl output is enabled")
			}
		case "parquet":
			if strings.TrimSpace(s.Parquet.Path) == "" {
				return errors.New("sink.parquet.path cannot be empty when parquet output is enabled")
			}
		}
	}
	return nil
}

// Validate 日志配置校验
func (l *ZapLogConfig) Validate() error {
	// --- 基础 tag 校验 ---
	if err := valid.Struct(l); err != nil {
		return fmt.Errorf("log config invalid: %w", err)
	}

	// 	校验日志级别，（必须是zap支持的合法级别）
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(l.Level)] {
		return fmt.Errorf("log.level invalid (valid: debug/info/warn/error), got %s", l.Level)
	}
	// 	校验日志路径(非空，确保可创建)
	abs, err := filepath.Abs(l.Path)
	if err != nil {
		return fmt.Errorf("log.path cannot be resolved, got %s: %w", l.Path, err)
	}
	if err := ensureDir(abs); err != nil {
		return fmt.Errorf("log.path directory is not writable, got %s: %w", l.Path, err)
	}
	return nil
}

func ensureDir(path string) error {
	stat, err := os.Stat(path)
	if os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}
	if err != nil {
		return err
	}
	if !stat.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
