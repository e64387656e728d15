package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// WebhookClaims identify the tenant and delivery an outbound webhook belongs to.
type WebhookClaims struct {
	TenantID string `json:"tenant_id"`
	Event    string `json:"event"`
	jwt.RegisteredClaims
}

func SignWebhook(secret []byte, tenantID, event, deliveryID string, now time.Time, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("webhook secret is empty")
	}

	claims := WebhookClaims{
		TenantID: tenantID,
		Event:    event,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        deliveryID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func ParseWebhookSign(token string, secret []byte) (*WebhookClaims, error) {
	parsedToken, err := jwt.ParseWithClaims(token, &WebhookClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsedToken.Claims.(*WebhookClaims)
	if !ok || !parsedToken.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
