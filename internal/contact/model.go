// Package contact 聯絡表單：欄位驗證、寄送與 POST /api/contact 處理器。
package contact

import "cyborg-vpn/internal/i18n"

// Submission 通過驗證的聯絡表單，僅存活於單一請求
type Submission struct {
	Name    string      `json:"name" validate:"min=2,max=50"`
	Email   string      `json:"email" validate:"email,max=100"`
	Subject string      `json:"subject" validate:"min=5,max=100"`
	Message string      `json:"message" validate:"min=10,max=1000"`
	Locale  i18n.Locale `json:"locale" validate:"locale"`
}

// RawSubmission 尚未驗證的請求內容，欄位型別不做任何假設
type RawSubmission map[string]any

// 欄位名稱，亦為錯誤訊息的輸出順序
const (
	FieldName    = "name"
	FieldEmail   = "email"
	FieldSubject = "subject"
	FieldMessage = "message"
	FieldLocale  = "locale"
)

type field struct {
	name string
	trim bool
	set  func(*Submission, string)
}

var fields = []field{
	{FieldName, true, func(s *Submission, v string) { s.Name = v }},
	{FieldEmail, true, func(s *Submission, v string) { s.Email = v }},
	{FieldSubject, true, func(s *Submission, v string) { s.Subject = v }},
	{FieldMessage, true, func(s *Submission, v string) { s.Message = v }},
	{FieldLocale, false, func(s *Submission, v string) { s.Locale = i18n.Locale(v) }},
}

// AuditFields 寫入審計日誌的欄位
func (s *Submission) AuditFields() map[string]interface{} {
	return map[string]interface{}{
		"name":    s.Name,
		"email":   s.Email,
		"subject": s.Subject,
		"message": s.Message,
		"locale":  s.Locale.String(),
	}
}
