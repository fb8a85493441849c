package middleware

import (
	"net/http"
	"time"

	"stockflow/internal/common"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const tokenContextKey = "operator_token"

// OperatorClaims identifies the warehouse operator behind a request. The subject is the operator id.
type OperatorClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWT validates HS256 bearer tokens and puts the operator id on the request context.
// An empty secret disables authentication.
func JWT(secret string) echo.MiddlewareFunc {
	if secret == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	verify := echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
		ContextKey: tokenContextKey,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(OperatorClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return unauthorized(c, "missing or invalid token")
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(withOperator(next))
	}
}

func withOperator(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get(tokenContextKey).(*jwt.Token)
		if !ok {
			return unauthorized(c, "missing token")
		}
		claims, ok := token.Claims.(*OperatorClaims)
		if !ok {
			return unauthorized(c, "invalid claims")
		}
		operatorID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return unauthorized(c, "token subject must be an operator id")
		}

		ctx := common.WithUserID(c.Request().Context(), operatorID)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, common.CreateErrorResponse("UNAUTHORIZED", message, nil))
}

// IssueToken signs an operator token, used by tooling and tests
func IssueToken(secret string, operatorID uuid.UUID, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := OperatorClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operatorID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
