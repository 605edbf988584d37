package jmx

import (
	"fmt"
	"path"
	"strings"
)

// ObjectName MBean 名称，格式 domain:key=value,key=value
// domain 可以省略；值可以用双引号包裹以包含逗号
type ObjectName string

// Property 一个 key=value 片段
type Property struct {
	Key   string
	Value string
}

// KeyProperties 解析后的 ObjectName
type KeyProperties struct {
	Domain     string
	Properties []Property
	// Wildcard 属性列表中带有 "*" 片段（匹配任意额外属性）
	Wildcard bool
}

// Get 返回 key 对应的值
func (k KeyProperties) Get(key string) (string, bool) {
	for _, p := range k.Properties {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

func (o ObjectName) String() string { return string(o) }

// Parse 解析 ObjectName
func (o ObjectName) Parse() (KeyProperties, error) {
	return ParseKeyProperties(string(o))
}

// IsPattern 是否包含通配符
func (o ObjectName) IsPattern() bool {
	return strings.ContainsAny(unquoted(string(o)), "*?")
}

// ParseKeyProperties 解析 "domain:k=v,k2=v2"，不带冒号时整个字符串视为属性列表
func ParseKeyProperties(name string) (KeyProperties, error) {
	var kp KeyProperties
	list := name
	if i := indexOutsideQuotes(name, ':'); i >= 0 {
		kp.Domain = name[:i]
		list = name[i+1:]
	}
	if strings.TrimSpace(list) == "" {
		return kp, fmt.Errorf("object name %q has no key properties", name)
	}

	for _, seg := range splitOutsideQuotes(list, ',') {
		if seg == "*" {
			kp.Wildcard = true
			continue
		}
		eq := strings.IndexByte(seg, '=')
		if eq <= 0 {
			return kp, fmt.Errorf("object name %q: malformed key property %q", name, seg)
		}
		kp.Properties = append(kp.Properties, Property{Key: seg[:eq], Value: seg[eq+1:]})
	}
	return kp, nil
}

// MatchPattern 判断 name 是否匹配 pattern（domain 与属性值支持 * 和 ? 通配）
func MatchPattern(pattern, name ObjectName) (bool, error) {
	p, err := pattern.Parse()
	if err != nil {
		return false, err
	}
	n, err := name.Parse()
	if err != nil {
		return false, err
	}
	if ok, err := path.Match(p.Domain, n.Domain); err != nil || !ok {
		return false, err
	}
	if !p.Wildcard && len(p.Properties) != len(n.Properties) {
		return false, nil
	}
	for _, want := range p.Properties {
		got, found := n.Get(want.Key)
		if !found {
			return false, nil
		}
		if ok, err := path.Match(want.Value, got); err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func indexOutsideQuotes(s string, sep byte) int {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && inQuote:
			i++
		case c == '"':
			inQuote = !inQuote
		case c == sep && !inQuote:
			return i
		}
	}
	return -1
}

func splitOutsideQuotes(s string, sep byte) []string {
	var out []string
	for {
		i := indexOutsideQuotes(s, sep)
		if i < 0 {
			return append(out, s)
		}
		out = append(out, s[:i])
		s = s[i+1:]
	}
}

// unquoted 去掉引号内的内容，引号中的 * ? 不是通配符
func unquoted(s string) string {
	var b strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && inQuote:
			i++
		case c == '"':
			inQuote = !inQuote
		case !inQuote:
			b.WriteByte(c)
		}
	}
	return b.String()
}
