package service

import (
	"errors"
	"time"

	"github.com/payhub-next/internal/config"
	"github.com/payhub-next/internal/logger"
	"github.com/payhub-next/internal/models"
	"github.com/payhub-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService 认证服务，管理端与用户端共用签发逻辑，密钥分离
type AuthService struct {
	cfg    *config.Config
	admins repository.AdminRepository
	users  repository.UserRepository
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg *config.Config, admins repository.AdminRepository, users repository.UserRepository) *AuthService {
	return &AuthService{cfg: cfg, admins: admins, users: users}
}

// AdminClaims 管理端 JWT 声明
type AdminClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserClaims 用户端 JWT 声明
type UserClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AdminLogin 管理员登录
func (s *AuthService) AdminLogin(username, password, clientIP string) (*models.Admin, string, time.Time, error) {
	admin, err := s.admins.GetByUsername(username)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if admin == nil || admin.Status != 1 || !admin.CheckPassword(password) {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.signToken(&s.cfg.JWT, AdminClaims{
		AdminID:  admin.ID,
		Username: admin.Username,
	}, time.Duration(s.cfg.JWT.ExpireHours)*time.Hour)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	admin.LastLoginAt = &now
	admin.LastLoginIP = clientIP
	if err := s.admins.Update(admin); err != nil {
		logger.Warnw("admin_last_login_update_failed", "admin_id", admin.ID, "error", err)
	}
	logger.Infow("admin_login", "admin_id", admin.ID, "username", admin.Username, "ip", clientIP)
	return admin, token, expiresAt, nil
}

// ParseAdminToken 解析管理端 token
func (s *AuthService) ParseAdminToken(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	if err := s.parseToken(tokenString, s.cfg.JWT.SecretKey, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ChangeAdminPassword 管理员修改密码
func (s *AuthService) ChangeAdminPassword(adminID uint, oldPassword, newPassword string) error {
	admin, err := s.admins.GetByID(adminID)
	if err != nil {
		return err
	}
	if admin == nil || !admin.CheckPassword(oldPassword) {
		return ErrInvalidCredentials
	}
	if err := admin.SetPassword(newPassword); err != nil {
		return err
	}
	return s.admins.Update(admin)
}

// UserLogin 用户登录
func (s *AuthService) UserLogin(email, password string) (*models.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if user == nil || user.Status != 1 || !user.CheckPassword(password) {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.signToken(&s.cfg.UserJWT, UserClaims{
		UserID: user.ID,
		Email:  user.Email,
	}, time.Duration(s.cfg.UserJWT.ExpireHours)*time.Hour)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, expiresAt, nil
}

// ParseUserToken 解析用户端 token
func (s *AuthService) ParseUserToken(tokenString string) (*UserClaims, error) {
	claims := &UserClaims{}
	if err := s.parseToken(tokenString, s.cfg.UserJWT.SecretKey, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *AuthService) signToken(cfg *config.JWTConfig, claims jwt.Claims, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	registered := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		NotBefore: jwt.NewNumericDate(time.Now()),
	}
	switch c := claims.(type) {
	case AdminClaims:
		c.RegisteredClaims = registered
		claims = c
	case UserClaims:
		c.RegisteredClaims = registered
		claims = c
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

func (s *AuthService) parseToken(tokenString, secret string, claims jwt.Claims) error {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("无效的 token")
	}
	return nil
}
