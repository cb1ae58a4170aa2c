// Package service 实现报表与图表的业务操作：增删改查、数据提交、
// 收藏与所有权转移、图表取数和表格导出。
// 周边的路由/会话/界面属于外部协作方，不在本包范围内；
// 调用方传入已鉴权的用户 id，本包只做归属和权限判断。
package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrPermissionDenied 当前用户没有权限执行该操作
	ErrPermissionDenied = errors.New("没有权限执行该操作")
)

// validate 数据驱动的输入校验器。
// 原实现按请求动态生成表单类，这里统一用结构体标签描述约束。
var validate = validator.New()

// checkInput 校验输入结构体，错误统一包装成中文提示
func checkInput(input interface{}) error {
	if err := validate.Struct(input); err != nil {
		return fmt.Errorf("输入校验失败: %w", err)
	}
	return nil
}
