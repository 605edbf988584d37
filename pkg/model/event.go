package model

import (
	"strings"
	"time"
)

// BoolSuffix 布尔值转数字后追加到 metric_path 的后缀
const BoolSuffix = "_bool"

var pathReplacer = strings.NewReplacer(" ", "_", `"`, "")

// MetricEvent 交给下游 sink 的最小单元，发出后不再修改
// 数值与字符串两种取值互斥，只能通过构造函数创建
type MetricEvent struct {
	Timestamp   time.Time `json:"@timestamp"`
	Host        string    `json:"host"`
	Path        string    `json:"path"`
	Type        string    `json:"type"`
	MetricPath  string    `json:"metric_path"`
	ValueNumber *float64  `json:"metric_value_number,omitempty"`
	ValueString *string   `json:"metric_value_string,omitempty"`
}

// EventOrigin 同一个 record 产生的所有事件共享的字段
type EventOrigin struct {
	Host string
	Path string
	Type string
}

// NewNumberEvent 数值事件
func NewNumberEvent(o EventOrigin, metricPath string, v float64, at time.Time) MetricEvent {
	return MetricEvent{Timestamp: at, Host: o.Host, Path: o.Path, Type: o.Type, MetricPath: metricPath, ValueNumber: &v}
}

// NewStringEvent 字符串事件
func NewStringEvent(o EventOrigin, metricPath string, v string, at time.Time) MetricEvent {
	return MetricEvent{Timestamp: at, Host: o.Host, Path: o.Path, Type: o.Type, MetricPath: metricPath, ValueString: &v}
}

// IsNumber 是否数值事件
func (e MetricEvent) IsNumber() bool { return e.ValueNumber != nil }

// Value 以 any 返回取值（float64 或 string）
func (e MetricEvent) Value() any {
	if e.ValueNumber != nil {
		return *e.ValueNumber
	}
	if e.ValueString != nil {
		return *e.ValueString
	}
	return nil
}

// MetricPath 用 "." 拼接路径片段，空格替换为 "_"，去掉双引号
func MetricPath(parts ...string) string {
	return pathReplacer.Replace(strings.Join(parts, "."))
}
