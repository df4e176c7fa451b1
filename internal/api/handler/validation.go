package handler

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/invitebatch/internal/model"
)

var registerOnce sync.Once

// RegisterValidators 把邀请相关的自定义规则注册到 gin 的校验器上
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("invite_role", func(fl validator.FieldLevel) bool {
			_, ok := model.ParseInviteRole(fl.Field().String())
			return ok
		})
		// 允许首尾空白，落库前统一 trim + 小写
		_ = v.RegisterValidation("invite_email", func(fl validator.FieldLevel) bool {
			return v.Var(strings.TrimSpace(fl.Field().String()), "email") == nil
		})
	})
}

func init() { RegisterValidators() }
