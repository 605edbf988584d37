package source

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-json"

	"github.com/jmx-collector/pkg/model"
)

// ValidationError 的分类
const (
	KindMissing   = "missing"
	KindWrongType = "wrong_type"
	KindInvalid   = "invalid"
)

// ValidationError 文档结构不符合 ConfigRecord，整个文档被拒绝
type ValidationError struct {
	Kind string
	Key  string
	// Detail 可选的补充说明
	Detail string
}

func (e *ValidationError) Error() string {
	key := e.Key
	if key == "" {
		key = "<document>"
	}
	if e.Detail != "" {
		return fmt.Sprintf("validation: %s %s: %s", e.Kind, key, e.Detail)
	}
	return fmt.Sprintf("validation: %s %s", e.Kind, key)
}

var recordValidator = newRecordValidator()

func newRecordValidator() *validator.Validate {
	v := validator.New()
	// 错误里使用文档中的 key 名
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate 检查解析后的原始文档并转换为 ConfigRecord
// 先做必填项与类型检查，再做语义校验，任何一步失败都不会返回部分结果
func Validate(doc any) (model.ConfigRecord, error) {
	root, ok := asMap(doc)
	if !ok {
		return model.ConfigRecord{}, &ValidationError{Kind: KindWrongType, Detail: "document is not an object"}
	}

	// 1. 必填顶层 key
	host, err := requireString(root, "host", "host")
	if err != nil {
		return model.ConfigRecord{}, err
	}
	port, err := requireNumber(root, "port")
	if err != nil {
		return model.ConfigRecord{}, err
	}
	rawQueries, ok := root["queries"]
	if !ok || rawQueries == nil {
		return model.ConfigRecord{}, &ValidationError{Kind: KindMissing, Key: "queries"}
	}
	queryList, ok := rawQueries.([]any)
	if !ok {
		return model.ConfigRecord{}, &ValidationError{Kind: KindWrongType, Key: "queries"}
	}

	// 2. 可选顶层 key
	normalized := map[string]any{"host": host, "port": port}
	if s, present, err := optionalString(root, "alias", "alias"); err != nil {
		return model.ConfigRecord{}, err
	} else if present {
		normalized["alias"] = s
	}
	creds, err := credentials(root)
	if err != nil {
		return model.ConfigRecord{}, err
	}
	if creds != nil {
		normalized["credentials"] = creds
	}

	// 3. 每个 query
	queries := make([]any, 0, len(queryList))
	for i, raw := range queryList {
		q, err := query(raw, fmt.Sprintf("queries[%d]", i))
		if err != nil {
			return model.ConfigRecord{}, err
		}
		queries = append(queries, q)
	}
	normalized["queries"] = queries

	var rec model.ConfigRecord
	if err := mapstructure.Decode(normalized, &rec); err != nil {
		return model.ConfigRecord{}, &ValidationError{Kind: KindInvalid, Detail: err.Error()}
	}

	// 4. 语义校验
	if err := recordValidator.Struct(rec); err != nil {
		return model.ConfigRecord{}, toValidationError(err)
	}
	return rec, nil
}

func toValidationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &ValidationError{Kind: KindInvalid, Detail: err.Error()}
	}
	fe := errs[0]
	key := fe.Namespace()
	// 去掉结构体名前缀 "ConfigRecord."
	if i := strings.IndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	return &ValidationError{Kind: KindInvalid, Key: key, Detail: fmt.Sprintf("failed %q rule", fe.Tag())}
}

func credentials(root map[string]any) (map[string]any, error) {
	out := map[string]any{}
	if raw, ok := root["credentials"]; ok && raw != nil {
		m, ok := asMap(raw)
		if !ok {
			return nil, &ValidationError{Kind: KindWrongType, Key: "credentials"}
		}
		for _, k := range []string{"username", "password"} {
			if s, present, err := optionalString(m, k, "credentials."+k); err != nil {
				return nil, err
			} else if present {
				out[k] = s
			}
		}
	}
	// 平铺写法 username/password 优先级更高
	for _, k := range []string{"username", "password"} {
		if s, present, err := optionalString(root, k, k); err != nil {
			return nil, err
		} else if present {
			out[k] = s
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func query(raw any, prefix string) (map[string]any, error) {
	m, ok := asMap(raw)
	if !ok {
		return nil, &ValidationError{Kind: KindWrongType, Key: prefix}
	}
	out := map[string]any{}

	key := "object_name"
	if _, ok := m[key]; !ok {
		if _, ok := m["object_pattern"]; ok {
			key = "object_pattern"
		}
	}
	pattern, err := requireString(m, key, prefix+"."+key)
	if err != nil {
		return nil, err
	}
	out["object_pattern"] = pattern

	if s, present, err := optionalString(m, "object_alias", prefix+".object_alias"); err != nil {
		return nil, err
	} else if present {
		out["object_alias"] = s
	}

	if rawAttrs, ok := m["attributes"]; ok && rawAttrs != nil {
		list, ok := rawAttrs.([]any)
		if !ok {
			return nil, &ValidationError{Kind: KindWrongType, Key: prefix + ".attributes"}
		}
		attrs := make([]string, 0, len(list))
		for j, a := range list {
			s, ok := a.(string)
			if !ok {
				return nil, &ValidationError{Kind: KindWrongType, Key: fmt.Sprintf("%s.attributes[%d]", prefix, j)}
			}
			attrs = append(attrs, s)
		}
		out["attributes"] = attrs
	}
	return out, nil
}

func requireString(m map[string]any, key, path string) (string, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return "", &ValidationError{Kind: KindMissing, Key: path}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &ValidationError{Kind: KindWrongType, Key: path}
	}
	return s, nil
}

func optionalString(m map[string]any, key, path string) (string, bool, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", false, &ValidationError{Kind: KindWrongType, Key: path}
	}
	return s, true, nil
}

// requireNumber JSON 解析得到 float64，YAML 解析得到 int；小数端口视为 invalid
func requireNumber(m map[string]any, key string) (int, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return 0, &ValidationError{Kind: KindMissing, Key: key}
	}
	var f float64
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		f = float64(v)
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, &ValidationError{Kind: KindWrongType, Key: key}
		}
		f = parsed
	default:
		return 0, &ValidationError{Kind: KindWrongType, Key: key}
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, &ValidationError{Kind: KindInvalid, Key: key, Detail: "not an integer"}
	}
	return int(f), nil
}

// asMap 兼容 YAML 中非字符串 key 产生的 map[any]any
func asMap(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	default:
		return nil, false
	}
}
