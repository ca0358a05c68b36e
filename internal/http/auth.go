package httpapi

import (
	"net/http"
	"strings"
)

// Operator 已认证操作员身份
// 会话/登录机制在网关侧，这里只消费解析好的身份头；拿不到身份一律 401。
type Operator struct {
	ID   string
	Role string
}

// operatorFromReq 从请求头解析操作员身份（X-Operator-Id / X-Operator-Role）
// 失败时已写出 401 响应，调用方直接 return
func operatorFromReq(w http.ResponseWriter, r *http.Request) (Operator, bool) {
	id := strings.TrimSpace(r.Header.Get("X-Operator-Id"))
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorBody{
			Code:    "unauthorized",
			Message: "operator identity is required",
		})
		return Operator{}, false
	}
	return Operator{
		ID:   id,
		Role: strings.TrimSpace(r.Header.Get("X-Operator-Role")),
	}, true
}
