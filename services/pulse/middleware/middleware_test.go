package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/api-pulse/services/pulse/testsCommon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	endpoint      string
	method        string
	statusCode    int
	durationMs    float64
	correlationID string
}

func setupTestApp(t *testing.T, args ArgsPulseMiddleware) (*gin.Engine, *[]recordedCall) {
	calls := &[]recordedCall{}
	if args.Metrics == nil {
		args.Metrics = &testsCommon.RecorderStub{
			RecordRequestHandler: func(endpoint string, method string, statusCode int, durationMs float64, correlationID string) {
				*calls = append(*calls, recordedCall{endpoint, method, statusCode, durationMs, correlationID})
			},
		}
	}

	pm, err := NewPulseMiddleware(args)
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(pm.Handle())

	return router, calls
}

func TestNewPulseMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("nil metrics should error", func(t *testing.T) {
		t.Parallel()

		pm, err := NewPulseMiddleware(ArgsPulseMiddleware{})
		assert.Nil(t, pm)
		assert.Equal(t, errNilMetrics, err)
	})
	t.Run("should work", func(t *testing.T) {
		t.Parallel()

		pm, err := NewPulseMiddleware(ArgsPulseMiddleware{Metrics: &testsCommon.RecorderStub{}})
		require.NoError(t, err)
		require.False(t, pm.IsInterfaceNil())
	})
}

func TestPulseMiddleware_RecordsRequests(t *testing.T) {
	t.Parallel()

	router, calls := setupTestApp(t, ArgsPulseMiddleware{})
	router.GET("/items/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/items/123", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/items/{id}", call.endpoint)
	assert.Equal(t, "GET", call.method)
	assert.Equal(t, http.StatusOK, call.statusCode)
	assert.GreaterOrEqual(t, call.durationMs, 0.0)
	assert.Equal(t, "unknown", call.correlationID)

	assert.NotEmpty(t, w.Header().Get("X-Response-Time-Ms"))
}

func TestPulseMiddleware_CorrelationID(t *testing.T) {
	t.Parallel()

	router, calls := setupTestApp(t, ArgsPulseMiddleware{})
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	req.Header.Set("X-Correlation-ID", "req-42")
	router.ServeHTTP(w, req)

	require.Len(t, *calls, 1)
	assert.Equal(t, "req-42", (*calls)[0].correlationID)
}

func TestPulseMiddleware_PathNormalization(t *testing.T) {
	t.Parallel()

	pm, err := NewPulseMiddleware(ArgsPulseMiddleware{Metrics: &testsCommon.RecorderStub{}})
	require.NoError(t, err)

	testCases := map[string]string{
		"/items/123":                   "/items/{id}",
		"/api/v1/products/789":         "/api/v{id}/products/{id}",
		"/users/d9428888-122b-11e1-b85c-61cd3cbb3210/posts": "/users/{id}/posts",
		"/plain/path": "/plain/path",
		"/":           "/",
	}
	for input, expected := range testCases {
		assert.Equal(t, expected, pm.normalizePath(input), "input: %s", input)
	}

	// normalization is idempotent, the output contains no digits
	for input := range testCases {
		once := pm.normalizePath(input)
		assert.Equal(t, once, pm.normalizePath(once))
	}
}

func TestPulseMiddleware_Exclusions(t *testing.T) {
	t.Parallel()

	router, calls := setupTestApp(t, ArgsPulseMiddleware{
		ExcludePathPrefixes: []string{"/health/pulse", "/internal/", "/"},
	})
	router.GET("/health/pulse", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health/pulse/endpoints", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/internal/debug", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/health/pulse", "/health/pulse/endpoints", "/internal/debug", "/"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", path, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Empty(t, *calls)

	// a bare "/" exclusion must not swallow every path, and "/healthz" does not
	// match the "/health/pulse" prefix
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/healthz", nil)
	router.ServeHTTP(w, req)
	require.Len(t, *calls, 1)
	assert.Equal(t, "/healthz", (*calls)[0].endpoint)
}

func TestPulseMiddleware_PanicRecovery(t *testing.T) {
	t.Parallel()

	t.Run("panic before the response starts yields a json 500", func(t *testing.T) {
		t.Parallel()

		router, calls := setupTestApp(t, ArgsPulseMiddleware{})
		router.GET("/boom", func(c *gin.Context) {
			panic("kaboom")
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/boom", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"detail":"Internal Server Error"}`, w.Body.String())
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		require.Len(t, *calls, 1)
		assert.Equal(t, http.StatusInternalServerError, (*calls)[0].statusCode)
	})
	t.Run("panic is recorded exactly once", func(t *testing.T) {
		t.Parallel()

		router, calls := setupTestApp(t, ArgsPulseMiddleware{})
		router.GET("/boom", func(c *gin.Context) {
			panic("kaboom")
		})

		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/boom", nil)
			router.ServeHTTP(w, req)
		}

		assert.Len(t, *calls, 3)
	})
}
