package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mindsetu-api/internal/middleware"
	"github.com/noah-isme/mindsetu-api/internal/models"
)

const (
	assignmentID   = "7d3c1a52-4b8e-4f0a-9c61-2e5b8d9f0a11"
	entryID        = "0b6f2c84-93d1-4a57-8e2f-6c4a1d7b3e22"
	missingEntryID = "c19e5d70-2a3b-4c8d-9f16-5e7a0b2d4c33"
	jobID          = "e4a81f36-5c27-4d9b-a0e3-7f1c6b8d2e44"
)

type responseEnvelope struct {
	Data    json.RawMessage        `json:"data"`
	Message string                 `json:"message"`
	Meta    map[string]interface{} `json:"meta"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withUser(c *gin.Context, claims *models.JWTClaims) {
	c.Set(middleware.ContextUserKey, claims)
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent, Email: "alex@x.io", InstituteName: "greenwood high"}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "adm-1", Role: models.RoleAdmin, Email: "admin@x.io", InstituteName: "greenwood high"}
}
