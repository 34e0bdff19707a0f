package auth

import "time"

// RegisterInput 注册参数
type RegisterInput struct {
	Username string `json:"username" validate:"required,username,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,password,max=72"`
	// ConfirmPassword 提供时必须与 Password 一致
	ConfirmPassword string `json:"confirm_password" validate:"omitempty,eqfield=Password"`
	FullName        string `json:"full_name" validate:"max=255"`
}

// LoginInput 登录参数
type LoginInput struct {
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
	IP         string `json:"-"`
	UserAgent  string `json:"-"`
}

type passwordChange struct {
	Current string `json:"current_password" validate:"required"`
	New     string `json:"new_password" validate:"required,password,max=72"`
}

// ProfileInput 资料修改，空字段不修改
type ProfileInput struct {
	FullName string `json:"full_name" validate:"max=255"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
}

// UserIdentity 对外返回的用户信息
type UserIdentity struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name"`
	IsActive   bool       `json:"is_active"`
	IsVerified bool       `json:"is_verified"`
	CreatedAt  time.Time  `json:"created_at"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
}

// Identity 访问令牌中携带的身份
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
