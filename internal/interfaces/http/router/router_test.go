package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
	assert.Empty(t, r.middleware)
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("collections", "/collections")
	g.GET("/pending", func(c *gin.Context) {
		c.String(http.StatusOK, "pending")
	})

	NewRouter(engine, WithAPIVersion("v2")).Register(g).Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v2/collections/pending").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/collections/pending").Code)
}

func TestRouterWithMiddleware(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("collections", "/collections")
	g.GET("/pending", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("operator_id"))
	})

	NewRouter(engine, WithMiddleware(func(c *gin.Context) {
		c.Set("operator_id", "op-1")
		c.Next()
	})).Register(g).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/collections/pending")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "op-1", w.Body.String())
}

func TestDomainGroup(t *testing.T) {
	t.Run("creates group with name and prefix", func(t *testing.T) {
		g := NewDomainGroup("collections", "/collections")
		assert.Equal(t, "collections", g.Name())
		assert.Equal(t, "/collections", g.Prefix())
	})

	t.Run("registers every method", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/test")
		g.GET("/items", func(c *gin.Context) { c.Status(http.StatusOK) }).
			POST("/items", func(c *gin.Context) { c.Status(http.StatusCreated) }).
			PUT("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) }).
			DELETE("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		g.RegisterRoutes(engine.Group("/api/v1"))

		tests := []struct {
			method string
			path   string
			status int
		}{
			{http.MethodGet, "/api/v1/test/items", http.StatusOK},
			{http.MethodPost, "/api/v1/test/items", http.StatusCreated},
			{http.MethodPut, "/api/v1/test/items/1", http.StatusOK},
			{http.MethodDelete, "/api/v1/test/items/1", http.StatusNoContent},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.status, serve(engine, tt.method, tt.path).Code, "%s %s", tt.method, tt.path)
		}
	})

	t.Run("applies middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/test")
		g.Use(func(c *gin.Context) {
			c.Header("X-Test-Middleware", "applied")
			c.Next()
		})
		g.GET("/items", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		g.RegisterRoutes(engine.Group("/api/v1"))

		assert.Equal(t, "applied", serve(engine, http.MethodGet, "/api/v1/test/items").Header().Get("X-Test-Middleware"))
	})

	t.Run("creates subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("collections", "/collections")
		g.Group("batch", "/batch").POST("", func(c *gin.Context) {
			c.String(http.StatusCreated, "batch")
		})
		g.Group("partial", "/partial").POST("", func(c *gin.Context) {
			c.String(http.StatusCreated, "partial")
		})
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodPost, "/api/v1/collections/batch")
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "batch", w.Body.String())

		w = serve(engine, http.MethodPost, "/api/v1/collections/partial")
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "partial", w.Body.String())
	})
}
