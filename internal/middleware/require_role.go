// require_role.go
package middleware

import (
	"net/http"

	"order-fulfillment-service/internal/model"

	"github.com/gin-gonic/gin"
)

// RequireRole corta la petición si el rol del empleado no está en el
// allow-list de la ruta. incharge pasa siempre.
func RequireRole(allowed ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		emp, ok := EmployeeFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "falta el header de autorización"})
			c.Abort()
			return
		}
		if !model.RoleAllowed(emp.Role, allowed...) {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "no tiene permisos para esta operación"})
			c.Abort()
			return
		}
		c.Next()
	}
}
