package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcampus/campus-booking-api/internal/models"
)

func rbacContext(t *testing.T, claims *models.JWTClaims, paramID string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/users/"+paramID, nil)
	require.NoError(t, err)
	c.Request = req
	if paramID != "" {
		c.Params = gin.Params{{Key: "id", Value: paramID}}
	}
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}
	return c, w
}

func TestRBACAllowsMatchingRole(t *testing.T) {
	c, w := rbacContext(t, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}, "u2")

	RBAC("ADMIN")(c)
	assert.False(t, c.IsAborted())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRBACRejectsOtherRole(t *testing.T) {
	c, w := rbacContext(t, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, "u2")

	RBAC("ADMIN")(c)
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACSelfMatchesOwnID(t *testing.T) {
	c, w := rbacContext(t, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, "u1")

	RBAC("ADMIN", "SELF")(c)
	assert.False(t, c.IsAborted())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRBACSelfRejectsForeignID(t *testing.T) {
	c, w := rbacContext(t, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, "u2")

	RBAC("ADMIN", "SELF")(c)
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACWithoutClaims(t *testing.T) {
	c, w := rbacContext(t, nil, "u1")

	RBAC("ADMIN")(c)
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRolesWrapsTypedRoles(t *testing.T) {
	c, w := rbacContext(t, &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher}, "")

	RequireRoles(models.RoleAdmin, models.RoleTeacher)(c)
	assert.False(t, c.IsAborted())
	assert.Equal(t, http.StatusOK, w.Code)
}
