package session

import "time"

// User 用户
type User struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Username     string     `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	FullName     string     `gorm:"size:255" json:"full_name"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	IsVerified   bool       `gorm:"not null" json:"is_verified"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

func (User) TableName() string { return "users" }

// Identity 返回用户身份
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}

// Session 一次登录对应一行。IsActive 一旦为 false 不再恢复
type Session struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	SessionToken string    `gorm:"size:64;uniqueIndex;not null"`
	UserID       string    `gorm:"size:36;index;not null"`
	RefreshToken string    `gorm:"size:1024;uniqueIndex;not null"`
	ExpiresAt    time.Time `gorm:"index;not null"`
	IPAddress    string    `gorm:"size:64"`
	UserAgent    string    `gorm:"size:512"`
	CreatedAt    time.Time `gorm:"index"`
	LastActivity time.Time
	IsActive     bool `gorm:"index;not null"`
}

func (Session) TableName() string { return "user_sessions" }

// Identity 缓存中保存的会话身份
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// TokenPair 登录与刷新的返回值
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	// SessionToken 可撤销的会话标识，用于登出与会话校验
	SessionToken string `json:"session_token"`
}

const TokenTypeBearer = "bearer"
