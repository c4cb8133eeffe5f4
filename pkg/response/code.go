package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 用户/权限错误 100xx
	ErrAuthFailed   = 10003
	ErrTokenInvalid = 10004
	ErrNoPermission = 10005

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
	ErrNotFound        = 50004
)
