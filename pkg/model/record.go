package model

import (
	"net"
	"strconv"
)

// Credentials JMX 端点认证信息
type Credentials struct {
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
}

// QuerySpec 单个 MBean 查询
type QuerySpec struct {
	ObjectPattern string   `json:"object_name" mapstructure:"object_pattern" validate:"required"`
	ObjectAlias   string   `json:"object_alias,omitempty" mapstructure:"object_alias"`
	Attributes    []string `json:"attributes,omitempty" mapstructure:"attributes" validate:"omitempty,dive,required"`
}

// HasAttributes 是否显式配置了属性列表（未配置时读取 MBean 的全部属性）
func (q QuerySpec) HasAttributes() bool { return q.Attributes != nil }

// ConfigRecord 一个被监控端点，进入工作队列前必须已经通过校验
type ConfigRecord struct {
	Host        string       `json:"host" mapstructure:"host" validate:"required"`
	Port        int          `json:"port" mapstructure:"port" validate:"min=1,max=65535"`
	Credentials *Credentials `json:"credentials,omitempty" mapstructure:"credentials"`
	MetricAlias string       `json:"alias,omitempty" mapstructure:"alias"`
	Queries     []QuerySpec  `json:"queries" mapstructure:"queries" validate:"required,min=1,dive"`

	// Source 记录来源文件，仅用于日志
	Source string `json:"-" mapstructure:"-"`
}

// BasePath 指标路径前缀：alias 优先，否则 "<host>_<port>"
func (r ConfigRecord) BasePath() string {
	if r.MetricAlias != "" {
		return r.MetricAlias
	}
	return r.Host + "_" + strconv.Itoa(r.Port)
}

// Address host:port
func (r ConfigRecord) Address() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}
