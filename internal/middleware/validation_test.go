package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstatusValidation(t *testing.T) {
	SetupValidator()

	type body struct {
		Status string `json:"status" binding:"required,substatus"`
	}

	r := gin.New()
	r.PUT("/", func(c *gin.Context) {
		var req body
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleBindError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		payload string
		want    int
		code    string
	}{
		{`{"status":"shipping"}`, http.StatusNoContent, ""},
		{`{"status":"refunded"}`, http.StatusBadRequest, "INVALID_STATUS"},
		{`{"status":"SHIPPING"}`, http.StatusBadRequest, "INVALID_STATUS"},
		{`{}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{`{"status":`, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.want, w.Code)
			if tt.code != "" {
				var resp map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.code, resp["code"])
			}
		})
	}
}
