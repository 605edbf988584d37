package jmx

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Kind 属性值类型，封闭集合
type Kind uint8

const (
	KindNumber Kind = iota + 1
	KindBoolean
	KindText
	KindComposite
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindText:
		return "text"
	case KindComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// Value MBean 属性值：Number / Boolean / Text / Composite(key -> Value)
// 由协议适配层构造，采集侧按 Kind 分派，不做运行时类型判断
type Value struct {
	kind   Kind
	num    float64
	flag   bool
	text   string
	fields map[string]Value
}

func Number(f float64) Value { return Value{kind: KindNumber, num: f} }
func Boolean(b bool) Value   { return Value{kind: KindBoolean, flag: b} }
func Text(s string) Value    { return Value{kind: KindText, text: s} }

// Composite 复合值，入参会被拷贝
func Composite(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindComposite, fields: cp}
}

func (v Value) Kind() Kind        { return v.kind }
func (v Value) Float() float64    { return v.num }
func (v Value) Bool() bool        { return v.flag }
func (v Value) IsComposite() bool { return v.kind == KindComposite }

// Keys 复合值的 key，按字典序
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.fields))
	for k := range v.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Field 取复合值中的子值
func (v Value) Field(key string) (Value, bool) {
	f, ok := v.fields[key]
	return f, ok
}

// String 文本形式
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.flag)
	case KindText:
		return v.text
	case KindComposite:
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v.fields[k].String())
		}
		b.WriteByte('}')
		return b.String()
	default:
		return ""
	}
}

// FromJSON 把解码后的 JSON 树转换为 Value
// 对象 -> Composite，数组与 null -> Text
func FromJSON(x any) Value {
	switch t := x.(type) {
	case nil:
		return Text("")
	case bool:
		return Boolean(t)
	case float64:
		return Number(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f)
		}
		return Text(t.String())
	case string:
		return Text(t)
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, sub := range t {
			fields[k] = FromJSON(sub)
		}
		return Value{kind: KindComposite, fields: fields}
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return Text("")
		}
		return Text(string(data))
	}
}
