// Package service 包含了应用的业务逻辑层。
package service

import "errors"

// ErrValidation 表示请求本身不合法，调用方应返回 400。
var ErrValidation = errors.New("No question in the request")
