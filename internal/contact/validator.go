package contact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"cyborg-vpn/internal/constants"
	"cyborg-vpn/internal/i18n"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedBody 請求內容不是 JSON 物件
var ErrMalformedBody = errors.New("malformed request body")

// FieldViolation 單一欄位的驗證錯誤
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v FieldViolation) String() string {
	return v.Field + ": " + v.Message
}

// ValidationError 收集所有欄位錯誤，依欄位順序排列
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// Fields 出錯的欄位名稱
func (e *ValidationError) Fields() []string {
	names := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		names = append(names, v.Field)
	}
	return names
}

// 驗證標籤對應的錯誤訊息
var messages = map[string]map[string]string{
	FieldName: {
		"min": fmt.Sprintf("姓名至少%d个字符", constants.MinNameLength),
		"max": fmt.Sprintf("姓名不超过%d个字符", constants.MaxNameLength),
	},
	FieldEmail: {
		"email": "请输入有效的邮箱地址",
		"max":   fmt.Sprintf("邮箱不超过%d个字符", constants.MaxEmailLength),
	},
	FieldSubject: {
		"min": fmt.Sprintf("主题至少%d个字符", constants.MinSubjectLength),
		"max": fmt.Sprintf("主题不超过%d个字符", constants.MaxSubjectLength),
	},
	FieldMessage: {
		"min": fmt.Sprintf("消息至少%d个字符", constants.MinMessageLength),
		"max": fmt.Sprintf("消息不超过%d个字符", constants.MaxMessageLength),
	},
}

var fieldOrder = func() map[string]int {
	order := make(map[string]int, len(fields))
	for i, f := range fields {
		order[f.name] = i
	}
	return order
}()

// Validator 聯絡表單驗證器，可安全地並發使用
type Validator struct {
	validate *validator.Validate
}

// NewValidator 創建驗證器
func NewValidator() *Validator {
	v := validator.New()

	// 錯誤中的欄位名稱使用 json 名稱
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("locale", func(fl validator.FieldLevel) bool {
		return i18n.IsSupported(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register locale validation: %v", err))
	}

	return &Validator{validate: v}
}

// DecodeRaw 讀取並解析請求內容，非 JSON 物件一律視為 ErrMalformedBody
func DecodeRaw(r io.Reader) (RawSubmission, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %s", ErrMalformedBody, jsonType(decoded))
	}
	return RawSubmission(obj), nil
}

// Normalize 去除文字欄位前後空白，locale 原樣保留；回傳新的副本
func Normalize(raw RawSubmission) RawSubmission {
	out := make(RawSubmission, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	for _, f := range fields {
		if !f.trim {
			continue
		}
		if s, ok := out[f.name].(string); ok {
			out[f.name] = strings.TrimSpace(s)
		}
	}
	return out
}

// Validate 檢查所有欄位並一次回報全部錯誤；失敗時回傳 *ValidationError
func (v *Validator) Validate(raw RawSubmission) (*Submission, error) {
	sub := &Submission{}
	var violations []FieldViolation
	failed := make(map[string]bool)

	for _, f := range fields {
		val, present := raw[f.name]
		if !present {
			violations = append(violations, FieldViolation{Field: f.name, Message: "Required"})
			failed[f.name] = true
			continue
		}
		s, ok := val.(string)
		if !ok {
			violations = append(violations, FieldViolation{
				Field:   f.name,
				Message: fmt.Sprintf("Expected string, received %s", jsonType(val)),
			})
			failed[f.name] = true
			continue
		}
		f.set(sub, s)
	}

	if err := v.validate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("validate submission: %w", err)
		}
		for _, fe := range verrs {
			if failed[fe.Field()] {
				continue
			}
			violations = append(violations, FieldViolation{
				Field:   fe.Field(),
				Message: violationMessage(fe),
			})
		}
	}

	if len(violations) > 0 {
		sort.SliceStable(violations, func(i, j int) bool {
			return fieldOrder[violations[i].Field] < fieldOrder[violations[j].Field]
		})
		return nil, &ValidationError{Violations: violations}
	}

	return sub, nil
}

func violationMessage(fe validator.FieldError) string {
	if fe.Field() == FieldLocale {
		return fmt.Sprintf("Invalid enum value. Expected %s, received '%v'", expectedLocales(), fe.Value())
	}
	if msg, ok := messages[fe.Field()][fe.Tag()]; ok {
		return msg
	}
	return fmt.Sprintf("failed on %s", fe.Tag())
}

func expectedLocales() string {
	quoted := make([]string, len(i18n.Locales))
	for i, l := range i18n.Locales {
		quoted[i] = "'" + l.String() + "'"
	}
	return strings.Join(quoted, " | ")
}

// jsonType JSON 值的型別名稱
func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
