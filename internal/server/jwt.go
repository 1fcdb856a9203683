package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWT 相关配置
const (
	// Session 有效期：覆盖一场比赛加上断线重连的时间
	SessionTTL = 15 * time.Minute

	// Token 签名者
	tokenIssuer = "kartnet-server"
)

var ErrInvalidToken = errors.New("invalid_token")

// Claims 定义 JWT Claims
type Claims struct {
	PlayerID int32  `json:"player_id"`
	Lobby    string `json:"lobby,omitempty"`
	jwt.RegisteredClaims
}

// getSigningKey 获取签名密钥
// 从环境变量 JWT_SECRET 读取，如果不存在则使用默认值
func getSigningKey() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		// 开发环境默认密钥，生产环境应设置环境变量
		secret = "kartnet-dev-secret-change-in-production"
	}
	return []byte(secret)
}

// GenerateSessionToken 生成会话 Token
func GenerateSessionToken(playerID int32, lobby string) (string, error) {
	now := time.Now()
	claims := Claims{
		PlayerID: playerID,
		Lobby:    lobby,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   fmt.Sprintf("player-%d", playerID),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(getSigningKey())
}

// VerifySessionToken 验证并解析 Token
// 返回 playerID 和签发时所在的大厅
func VerifySessionToken(tokenString string) (int32, string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return getSigningKey(), nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims.PlayerID, claims.Lobby, nil
	}

	return 0, "", ErrInvalidToken
}
