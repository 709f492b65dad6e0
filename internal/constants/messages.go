package constants

// 對外回應訊息；前端依字面比對，勿任意修改
const (
	MsgContactSent        = "Your message has been sent successfully. We will get back to you soon."
	MsgInvalidRequestBody = "Invalid request body"
	MsgTooManyRequests    = "Too many requests. Please try again later."
	MsgUnexpectedError    = "An unexpected error occurred. Please try again later."
)
