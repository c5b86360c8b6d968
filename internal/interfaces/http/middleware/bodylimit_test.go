package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ledgerbook/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type limitedPosting struct {
	Description string `json:"description"`
}

func bindingRouter(limit int64) *gin.Engine {
	router := gin.New()
	router.Use(BodyLimit(limit))
	router.POST("/transactions", func(c *gin.Context) {
		var req limitedPosting
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.String(http.StatusCreated, req.Description)
	})
	return router
}

func postingBody(descriptionLen int) string {
	return `{"description":"` + strings.Repeat("x", descriptionLen) + `"}`
}

func TestBodyLimit(t *testing.T) {
	tests := []struct {
		name       string
		limit      int64
		body       string
		streamed   bool
		wantStatus int
		wantCode   string
	}{
		{"within limit", 1024, postingBody(10), false, http.StatusCreated, ""},
		{"declared length over limit", 64, postingBody(200), false, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge},
		{"streamed body over limit", 64, postingBody(200), true, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge},
		{"zero limit disables the check", 0, postingBody(4096), false, http.StatusCreated, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.streamed {
				// unknown length, only the reader enforces the limit
				req.ContentLength = -1
			}
			w := httptest.NewRecorder()
			bindingRouter(tt.limit).ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
			}
		})
	}
}

func TestBodyLimit_IgnoresBodylessRequests(t *testing.T) {
	w := httptest.NewRecorder()
	okRouter(BodyLimit(1)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
