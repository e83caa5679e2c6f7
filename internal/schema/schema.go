// 包 schema 解释 model 结构体上的 validate 标签（声明式 schema），
// 把 go-playground/validator 的错误转换为 ValidationError：
// 每条 Violation 指明字段（front matter 中的键路径）与违反的规则。
package schema

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"portfolio-content/internal/model"
)

// SlugPattern 为 slug 的合法格式：小写字母、数字与连字符。
var SlugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ReservedSlugs 与 HTTP 接口中的固定子路径同名，不能用作 slug。
var ReservedSlugs = []string{"featured", "search", "tags"}

// Violation 为单条规则违反。
type Violation struct {
	Field   string // 如 "dates.start"、"links[0].href"
	Rule    string // 如 "required"、"min"、"slug"
	Param   string // 规则参数，如 min=1 中的 "1"
	Message string
}

func (v Violation) String() string {
	rule := v.Rule
	if v.Param != "" {
		rule += "=" + v.Param
	}
	if v.Field == "" {
		return fmt.Sprintf("%s [%s]", v.Message, rule)
	}
	return fmt.Sprintf("%s: %s [%s]", v.Field, v.Message, rule)
}

// ValidationError 表示 front matter 未通过 schema 校验，加载必须中止。
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return "schema violation: " + strings.Join(parts, "; ")
}

// Field 返回指定字段的第一条违反记录。
func (e *ValidationError) Field(name string) (Violation, bool) {
	for _, v := range e.Violations {
		if v.Field == name {
			return v, true
		}
	}
	return Violation{}, false
}

// Validator 持有注册了自定义规则的 validator 实例，可并发使用。
type Validator struct {
	v *validator.Validate
}

// New 创建 Validator 并注册 slug/unreserved/yearmonth/anydate/absurl 规则。
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	mustRegister(v, "slug", func(fl validator.FieldLevel) bool {
		return SlugPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "unreserved", func(fl validator.FieldLevel) bool {
		return !slices.Contains(ReservedSlugs, fl.Field().String())
	})
	mustRegister(v, "yearmonth", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(model.YearMonthLayout, fl.Field().String())
		return err == nil
	})
	mustRegister(v, "anydate", func(fl validator.FieldLevel) bool {
		_, err := model.ParseDate(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "absurl", func(fl validator.FieldLevel) bool {
		return IsAbsURL(fl.Field().String())
	})
	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

// IsAbsURL 报告 s 是否为带 scheme 与 host 的绝对 URL。
func IsAbsURL(s string) bool {
	if strings.TrimSpace(s) != s || s == "" {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Struct 校验一条记录；通过返回 nil，否则返回 *ValidationError。
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{Violations: make([]Violation, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Violations = append(out.Violations, Violation{
			Field:   fieldPath(fe.Namespace()),
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Message: message(fe),
		})
	}
	return out
}

// Decode 把 front matter 节点解码进 v。解码前先按 v 的字段类型检查标量：
// 布尔字段只接受 true/false，字符串字段不接受数字与布尔值。yaml.v3 会把
// "yes"/"off" 转换为布尔值、把 12345 转换为字符串，这些都报告为 type 违反。
// n 为零值（文件没有 front matter）时 v 保持不变。
func Decode(n *yaml.Node, v any) error {
	if n == nil || n.Kind == 0 {
		return nil
	}
	if err := CheckTypes(n, v); err != nil {
		return err
	}
	return FromDecode(n.Decode(v))
}

// CheckTypes 检查 n 中各标量的 YAML 类型是否与 v 的字段类型相符，
// 不相符时返回 *ValidationError，Field 为 front matter 中的键路径。
func CheckTypes(n *yaml.Node, v any) error {
	var out []Violation
	checkNode(n, reflect.TypeOf(v), "", &out)
	if len(out) == 0 {
		return nil
	}
	return &ValidationError{Violations: out}
}

var timeType = reflect.TypeOf(time.Time{})

func checkNode(n *yaml.Node, t reflect.Type, field string, out *[]Violation) {
	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			checkNode(c, t, field, out)
		}
		return
	case yaml.AliasNode:
		if n.Alias != nil {
			checkNode(n.Alias, t, field, out)
		}
		return
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		if n.Kind != yaml.MappingNode || t == timeType {
			return
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if ft, ok := fieldType(t, key); ok {
				checkNode(n.Content[i+1], ft, joinField(field, key), out)
			}
		}
	case reflect.Slice, reflect.Array:
		if n.Kind != yaml.SequenceNode {
			return
		}
		for i, c := range n.Content {
			checkNode(c, t.Elem(), fmt.Sprintf("%s[%d]", field, i), out)
		}
	case reflect.Bool:
		if n.Kind == yaml.ScalarNode && n.ShortTag() != "!!bool" {
			*out = append(*out, typeViolation(field, "bool", n))
		}
	case reflect.String:
		if n.Kind != yaml.ScalarNode {
			return
		}
		switch n.ShortTag() {
		case "!!int", "!!float", "!!bool":
			*out = append(*out, typeViolation(field, "string", n))
		}
	}
}

// fieldType 按 yaml 标签（缺省为小写字段名）查找结构体字段的类型。
func fieldType(t reflect.Type, key string) (reflect.Type, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = strings.ToLower(f.Name)
		}
		if name == key {
			return f.Type, true
		}
	}
	return nil, false
}

func joinField(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func typeViolation(field, want string, n *yaml.Node) Violation {
	return Violation{
		Field:   field,
		Rule:    "type",
		Param:   want,
		Message: fmt.Sprintf("must be a %s, got %s %q", want, strings.TrimPrefix(n.ShortTag(), "!!"), n.Value),
	}
}

// FromDecode 把 YAML 类型错误（如 id: abc）转换为 ValidationError，
// 其他错误原样返回。
func FromDecode(err error) error {
	if err == nil {
		return nil
	}
	var te *yaml.TypeError
	if !errors.As(err, &te) {
		return err
	}
	out := &ValidationError{}
	for _, msg := range te.Errors {
		out.Violations = append(out.Violations, Violation{Rule: "type", Message: msg})
	}
	return out
}

// fieldPath 去掉命名空间开头的结构体名：Project.dates.start -> dates.start。
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(fe validator.FieldError) string {
	isList := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if isList {
			return fmt.Sprintf("is required with at least %s item(s)", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be >= " + fe.Param()
	case "max":
		if isList {
			return fmt.Sprintf("must have at most %s item(s)", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be <= " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "slug":
		return "must contain only lowercase letters, digits and hyphens"
	case "unreserved":
		return "is reserved (" + strings.Join(ReservedSlugs, ", ") + ")"
	case "yearmonth":
		return "must be a YYYY-MM date"
	case "anydate":
		return "must be a parseable date"
	case "absurl":
		return "must be an absolute URL"
	}
	return fmt.Sprintf("failed rule %q", fe.Tag())
}
