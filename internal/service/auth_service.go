package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"pujaledger/internal/config"
	"pujaledger/internal/logging"
	"pujaledger/internal/model"
	"pujaledger/internal/repository"
	"pujaledger/pkg/apperr"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Claims JWT 负载
type Claims struct {
	IdentityID int64  `json:"id"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// Principal 当前登录身份
type Principal struct {
	IdentityID int64
	Role       string
}

type LoginResult struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

type AuthService struct {
	db         *gorm.DB
	identities *repository.IdentityRepository
	cfg        config.JWTConfig
	logger     *logging.Logger
	now        func() time.Time
}

func NewAuthService(db *gorm.DB, cfg config.JWTConfig, logger *logging.Logger) *AuthService {
	return &AuthService{
		db:         db,
		identities: repository.NewIdentityRepository(db),
		cfg:        cfg,
		logger:     logger.WithComponent(logging.ComponentAuth),
		now:        time.Now,
	}
}

// HashPassword bcrypt 哈希
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *AuthService) ttl() time.Duration {
	if s.cfg.ExpireHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.cfg.ExpireHours) * time.Hour
}

// IssueToken 为账号签发 HS256 token
func (s *AuthService) IssueToken(identity *model.Identity) (string, error) {
	now := s.now()
	claims := &Claims{
		IdentityID: identity.ID,
		Role:       identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl())),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}

func (s *AuthService) Login(ctx context.Context, loginName, password string) (*LoginResult, error) {
	if strings.TrimSpace(loginName) == "" || password == "" {
		return nil, apperr.Validation(apperr.CodeParamError, "login name and password are required")
	}

	identity, err := s.identities.GetByLoginName(ctx, nil, loginName)
	if err != nil {
		if errors.Is(err, repository.ErrIdentityNotFound) {
			return nil, apperr.Auth(apperr.CodeInvalidCredentials, "invalid credentials")
		}
		return nil, apperr.Internal("load identity", err)
	}
	if !checkPassword(identity.PasswordHash, password) {
		s.logger.Warn("login rejected", "login_name", loginName)
		return nil, apperr.Auth(apperr.CodeInvalidCredentials, "invalid credentials")
	}

	token, err := s.IssueToken(identity)
	if err != nil {
		return nil, apperr.Internal("sign token", err)
	}
	return &LoginResult{Token: token, Role: identity.Role}, nil
}

// Verify 校验 token 签名、签发方和有效期
func (s *AuthService) Verify(tokenStr string) (*Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, apperr.Auth(apperr.CodeUnauthorized, "invalid or expired token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.IdentityID == 0 {
		return nil, apperr.Auth(apperr.CodeUnauthorized, "invalid or expired token")
	}
	return &Principal{IdentityID: claims.IdentityID, Role: claims.Role}, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, identityID int64, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperr.Validation(apperr.CodeParamError, "both old and new passwords are required")
	}

	identity, err := s.identities.GetByID(ctx, nil, identityID)
	if err != nil {
		return translate(err, "load identity")
	}
	if !checkPassword(identity.PasswordHash, oldPassword) {
		return apperr.Auth(apperr.CodeInvalidCredentials, "old password is incorrect")
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return apperr.Internal("hash password", err)
	}
	if err := s.identities.UpdateFields(ctx, nil, identityID, map[string]interface{}{"password_hash": hash}); err != nil {
		return translate(err, "update password")
	}
	s.logger.Info("password changed", "identity_id", identityID)
	return nil
}

// CreateUser 管理员直接创建登录账号（不关联会员）
func (s *AuthService) CreateUser(ctx context.Context, loginName, password, role string) (*model.Identity, error) {
	loginName = strings.TrimSpace(loginName)
	if !model.IsValidIdentityRole(role) {
		return nil, apperr.Validation(apperr.CodeInvalidRole, "invalid role")
	}
	if loginName == "" || password == "" {
		return nil, apperr.Validation(apperr.CodeLoginRequired, "login name and password are required")
	}

	taken, err := s.identities.LoginNameTaken(ctx, nil, loginName, 0)
	if err != nil {
		return nil, apperr.Internal("check login name", err)
	}
	if taken {
		return nil, apperr.Conflict(apperr.CodeDuplicateLogin, "login name already exists")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	identity := &model.Identity{LoginName: loginName, PasswordHash: hash, Role: role}
	if err := s.identities.Create(ctx, nil, identity); err != nil {
		return nil, translateIdentity(err, "create identity")
	}
	s.logger.Info("user created", "identity_id", identity.ID, "role", role)
	return identity, nil
}
