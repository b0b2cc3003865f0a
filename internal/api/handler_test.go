package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindStockMutation(t *testing.T, body string) (stockMutationRequest, error) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req stockMutationRequest
	err := c.ShouldBindJSON(&req)
	return req, err
}

func TestStockMutationBinding(t *testing.T) {
	t.Run("adjust to zero", func(t *testing.T) {
		req, err := bindStockMutation(t,
			`{"op":"adjust","quantity":0,"reason":"stocktake","actor":"admin"}`)
		require.NoError(t, err)
		assert.Equal(t, "adjust", req.Op)
		assert.Equal(t, 0, req.Quantity)
	})

	t.Run("reserve", func(t *testing.T) {
		req, err := bindStockMutation(t,
			`{"op":"reserve","quantity":3,"reason":"manual hold","actor":"admin"}`)
		require.NoError(t, err)
		assert.Equal(t, 3, req.Quantity)
	})

	t.Run("negative quantity", func(t *testing.T) {
		_, err := bindStockMutation(t,
			`{"op":"adjust","quantity":-1,"reason":"stocktake","actor":"admin"}`)
		assert.Error(t, err)
	})

	t.Run("unknown op", func(t *testing.T) {
		_, err := bindStockMutation(t,
			`{"op":"destroy","quantity":1,"reason":"x","actor":"admin"}`)
		assert.Error(t, err)
	})

	t.Run("missing reason", func(t *testing.T) {
		_, err := bindStockMutation(t,
			`{"op":"release","quantity":1,"actor":"admin"}`)
		assert.Error(t, err)
	})
}
