// Package auth 实现管理员 PIN 门禁。校验通过后签发绑定具体操作的
// 短时效令牌，受保护接口只凭令牌放行——PIN 本身不随业务请求传输。
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Action 是受 PIN 保护的操作类型。
type Action string

const (
	ActionAddUser       Action = "add-user"
	ActionDeleteUser    Action = "delete-user"
	ActionDeleteMessage Action = "delete-message"
)

// ErrPinMismatch 表示提交的 PIN 与配置的哈希不匹配。
var ErrPinMismatch = errors.New("pin mismatch")

// PinGate 校验 PIN 并签发操作令牌。
type PinGate struct {
	pinHash     string
	tokenSecret []byte
	tokenTTL    time.Duration
}

// ActionClaims 表示操作令牌中的业务字段。
type ActionClaims struct {
	Action   Action `json:"action"`
	TargetID string `json:"target_id,omitempty"`
	jwt.RegisteredClaims
}

// NewPinGate 构造门禁。pinHash 为 bcrypt 哈希，tokenTTL 为令牌有效期。
func NewPinGate(pinHash, tokenSecret string, tokenTTL time.Duration) *PinGate {
	return &PinGate{
		pinHash:     pinHash,
		tokenSecret: []byte(tokenSecret),
		tokenTTL:    tokenTTL,
	}
}

// HashPin 生成 PIN 的 bcrypt 哈希（部署时由 cmd/admin 调用）。
func HashPin(pin string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(bytes), nil
}

// Verify 校验 PIN，成功则为指定操作签发令牌。
// targetID 在删除类操作时绑定目标，签发后换绑无效。
func (g *PinGate) Verify(pin string, action Action, targetID string) (string, error) {
	if bcrypt.CompareHashAndPassword([]byte(g.pinHash), []byte(pin)) != nil {
		return "", ErrPinMismatch
	}

	now := time.Now()
	claims := ActionClaims{
		Action:   action,
		TargetID: targetID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.tokenSecret)
	if err != nil {
		return "", fmt.Errorf("sign action token: %w", err)
	}
	return signed, nil
}

// Validate 解析令牌并确认它授权了指定操作与目标。
func (g *PinGate) Validate(tokenString string, action Action, targetID string) error {
	if tokenString == "" {
		return errors.New("token string is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &ActionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return g.tokenSecret, nil
	})
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*ActionClaims)
	if !ok || !token.Valid {
		return errors.New("invalid token claims")
	}
	if claims.Action != action {
		return fmt.Errorf("token issued for action %q, not %q", claims.Action, action)
	}
	if claims.TargetID != targetID {
		return errors.New("token target mismatch")
	}
	return nil
}
