package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var valid = validator.New()

// EnvPrefix 环境变量前缀（JMX_COLLECTOR_COLLECT_PATH -> collect.path）
const EnvPrefix = "JMX_COLLECTOR"

// Config 全局配置结构体（聚合所有核心模块）
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server" comment:"HTTP服务配置"`
	Collect CollectConfig `yaml:"collect" mapstructure:"collect" comment:"JMX采集配置"`
	Sink    SinkConfig    `yaml:"sink" mapstructure:"sink" comment:"事件输出配置"`
	Log     ZapLogConfig  `yaml:"log" mapstructure:"log" comment:"日志配置"`
}

// ServerConfig HTTP服务配置（超时统一为time.Duration，支持"30s"解析）
type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr" validate:"required,hostname_port" comment:"HTTP监听地址（格式：ip:port）"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"required,gt=0" comment:"读取超时时间（如30s）"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"required,gt=0" comment:"写入超时时间（如30s）"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"required,gt=0" comment:"空闲连接超时时间（如60s）"`

	// SelfMonitorInterval 进程自监控采集间隔
	SelfMonitorInterval time.Duration `yaml:"self_monitor_interval" mapstructure:"self_monitor_interval" validate:"required,gt=0" comment:"自监控采集间隔"`
}

// CollectConfig 采集调度配置
type CollectConfig struct {
	Path             string        `yaml:"path" mapstructure:"path" validate:"required" comment:"端点配置目录（每个文件一个端点）"`
	Type             string        `yaml:"type" mapstructure:"type" validate:"required" comment:"事件 type 字段"`
	PollingFrequency time.Duration `yaml:"polling_frequency" mapstructure:"polling_frequency" validate:"required,gt=0" comment:"采集周期（纯数字按秒解析）"`
	NbThread         int           `yaml:"nb_thread" mapstructure:"nb_thread" validate:"required,gte=1,lte=512" comment:"采集worker数量"`
	QueueSize        int           `yaml:"queue_size" mapstructure:"queue_size" validate:"required,gte=1" comment:"工作队列容量"`
	DrainCheck       time.Duration `yaml:"drain_check" mapstructure:"drain_check" validate:"required,gt=0" comment:"队列排空检查间隔"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"required,gt=0" comment:"单次网络操作超时"`
	Jolokia          JolokiaConfig `yaml:"jolokia" mapstructure:"jolokia" comment:"Jolokia 代理配置"`
}

// JolokiaConfig JMX-over-HTTP 接入配置
type JolokiaConfig struct {
	Scheme             string `yaml:"scheme" mapstructure:"scheme" validate:"required,oneof=http https"`
	Path               string `yaml:"path" mapstructure:"path" validate:"required,startswith=/"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
}

// SinkConfig 指标事件输出配置
type SinkConfig struct {
	Outputs []string       `yaml:"outputs" mapstructure:"outputs" validate:"required,min=1,dive,oneof=log prometheus jsonl parquet" comment:"输出列表"`
	JSONL   FileSinkConfig `yaml:"jsonl" mapstructure:"jsonl"`
	Parquet FileSinkConfig `yaml:"parquet" mapstructure:"parquet"`
}

// FileSinkConfig 文件类输出
type FileSinkConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ZapLogConfig 日志配置
type ZapLogConfig struct {
	Level     string `yaml:"level" mapstructure:"level" validate:"required,oneof=debug info warn error dpanic panic fatal" comment:"日志级别" default:"info"`
	Format    string `yaml:"format" mapstructure:"format" validate:"required,oneof=json console" comment:"日志格式（json/console）" default:"json"`
	Path      string `yaml:"path" mapstructure:"path" validate:"required" comment:"日志存储路径" default:"./logs"`
	MaxSize   int    `yaml:"max_size" mapstructure:"max_size" validate:"required,gt=0" comment:"单个日志文件最大大小（MB）" default:"100"`
	MaxBackup int    `yaml:"max_backup" mapstructure:"max_backup" validate:"gte=0" comment:"日志文件最大备份数" default:"30"`
	MaxAge    int    `yaml:"max_age" mapstructure:"max_age" validate:"required,gt=0" comment:"日志文件最大保存天数" default:"7"`
	Compress  bool   `yaml:"compress" mapstructure:"compress" comment:"是否压缩过期日志" default:"true"`
}

// NewDefaultConfig 创建默认配置（collect.path 没有默认值，必须显式指定）
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         "0.0.0.0:9404",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,

			SelfMonitorInterval: 15 * time.Second,
		},
		Collect: CollectConfig{
			Type:             "jmx",
			PollingFrequency: 60 * time.Second,
			NbThread:         4,
			QueueSize:        1024,
			DrainCheck:       time.Second,
			Timeout:          10 * time.Second,
			Jolokia: JolokiaConfig{
				Scheme: "http",
				Path:   "/jolokia",
			},
		},
		Sink: SinkConfig{
			Outputs: []string{"log"},
			JSONL:   FileSinkConfig{Path: "./data/events.jsonl"},
			Parquet: FileSinkConfig{Path: "./data/events.parquet"},
		},
		Log: ZapLogConfig{
			Level:     "info",
			Format:    "json",
			Path:      "./logs",
			MaxSize:   100,
			MaxBackup: 30,
			MaxAge:    7,
			Compress:  true,
		},
	}
}

// LoadConfigWithCli 合并 Flags + YAML + ENV，解码后统一校验
func LoadConfigWithCli(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	// 1. 绑定 Cobra Flags → Viper
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	// 2. 解析配置文件 (--config)，文件不存在时仅使用 flags/env
	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	return Load(v)
}

// Load 从已填充的 viper 实例解码并校验配置
func Load(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()

	// ENV -> Viper （JMX_COLLECTOR_COLLECT_NB_THREAD -> collect.nb_thread）
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	decoderConfig := &mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			numberToSecondsHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// numberToSecondsHookFunc 纯数字的 duration 按秒解析（polling_frequency: 60）
func numberToSecondsHookFunc() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != durationType {
			return data, nil
		}
		switch n := data.(type) {
		case int:
			return time.Duration(n) * time.Second, nil
		case int64:
			return time.Duration(n) * time.Second, nil
		case float64:
			return time.Duration(n * float64(time.Second)), nil
		case string:
			if secs, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				return time.Duration(secs) * time.Second, nil
			}
		}
		return data, nil
	}
}

// Validate 配置校验
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	// 	1,校验Server服务配置
	if err := c.Server.Validate(); err != nil {
		return err
	}
	// 	2，校验采集配置
	if err := c.Collect.Validate(); err != nil {
		return err
	}
	// 	3，校验输出配置
	if err := c.Sink.Validate(); err != nil {
		return err
	}
	// 	4，校验日志配置
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}
