package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cydxin/call-sdk/errs"
)

// Response 统一响应结构
type Response struct {
	Code int         `json:"code" example:"0"`                    // 业务状态码
	Msg  string      `json:"msg" example:"success"`               // 提示消息
	Data interface{} `json:"data,omitempty" swaggertype:"object"` // 响应数据
}

// 业务状态码定义
// 使用说明：
// - 中间件层：使用 HTTP 状态码（401/500）
// - 业务层：HTTP 200 + 业务状态码
const (
	CodeSuccess            = 0     // 成功
	CodeParamError         = 10001 // 参数错误
	CodeNotFound           = 10002 // 记录不存在
	CodeTokenInvalid       = 10004 // Token 无效/过期
	CodePermissionDeny     = 10005 // 权限不足
	CodeStaleInvite        = 20001 // 呼叫邀请已失效（过期/已处理/已取消）
	CodeStreamEnded        = 20002 // 直播已结束
	CodeAlreadyLive        = 20003 // 主播已有进行中的直播
	CodeFailedPrecondition = 20004 // 服务未配置（如 RTC 凭证缺失）
	CodeInternalError      = 99999 // 内部错误
)

// Success 成功响应
func Success(data interface{}, args ...string) *Response {
	msg := "success"
	for _, arg := range args {
		msg = arg
	}
	return &Response{
		Code: CodeSuccess,
		Msg:  msg,
		Data: data,
	}
}

// Error 错误响应
func Error(code int, msg string) *Response {
	return &Response{
		Code: code,
		Msg:  msg,
	}
}

// CodeOf 领域错误 -> 业务状态码
func CodeOf(err error) int {
	switch {
	case err == nil:
		return CodeSuccess
	case errors.Is(err, errs.ErrInvalidArgument):
		return CodeParamError
	case errors.Is(err, errs.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, errs.ErrUnauthenticated):
		return CodeTokenInvalid
	case errors.Is(err, errs.ErrForbidden):
		return CodePermissionDeny
	case errors.Is(err, errs.ErrStaleInvite):
		return CodeStaleInvite
	case errors.Is(err, errs.ErrStreamEnded):
		return CodeStreamEnded
	case errors.Is(err, errs.ErrAlreadyLive):
		return CodeAlreadyLive
	case errors.Is(err, errs.ErrFailedPrecondition):
		return CodeFailedPrecondition
	default:
		return CodeInternalError
	}
}

// FromError 内部错误不透出细节
func FromError(err error) *Response {
	code := CodeOf(err)
	if code == CodeInternalError {
		return Error(code, "internal error")
	}
	return Error(code, err.Error())
}

// WriteJSON 写入 JSON 响应（默认 HTTP 200）
func (r *Response) WriteJSON(w http.ResponseWriter) {
	r.WriteJSONWithStatus(w, http.StatusOK)
}

// WriteJSONWithStatus 写入 JSON 响应（指定 HTTP 状态码）
// 用于中间件层面的鉴权失败等场景（如 401）
func (r *Response) WriteJSONWithStatus(w http.ResponseWriter, httpStatus int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(r)
}
