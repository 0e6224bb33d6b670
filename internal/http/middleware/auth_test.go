package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/nurpe/drillstock/internal/model"
)

type stubParser map[string]model.Principal

func (s stubParser) Parse(token string) (model.Principal, error) {
	p, ok := s[token]
	if !ok {
		return model.Principal{}, errors.New("bad token")
	}
	return p, nil
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	parser := stubParser{
		"good":  {UserID: "u-1", Role: "storekeeper"},
		"admin": {UserID: "u-2", Role: "admin"},
	}
	group := router.Group("/", Auth(parser))
	group.GET("/me", func(c *gin.Context) {
		p, ok := MustPrincipal(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, p.UserID)
	})
	group.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestAuth(t *testing.T) {
	router := newRouter()

	cases := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"no header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic good", http.StatusUnauthorized},
		{"unknown token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "/me", "Bearer good", http.StatusOK},
		{"non admin", "/admin", "Bearer good", http.StatusForbidden},
		{"admin", "/admin", "Bearer admin", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestMustPrincipalWithoutAuth(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := MustPrincipal(c)
	assert.False(t, ok)
}
