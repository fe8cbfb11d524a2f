// auth_middleware.go
package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"order-fulfillment-service/internal/model"
	"order-fulfillment-service/internal/service"

	"github.com/gin-gonic/gin"
)

const employeeKey = "employee"

// AuthMiddleware valida el token contra el microservicio de auth y resuelve
// el empleado actuante en una única lectura. El empleado resuelto queda en el
// contexto; los handlers nunca vuelven a tocar la sesión.
func AuthMiddleware(authService *service.AuthService, svc *service.FulfillmentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "falta el header de autorización"})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		token = strings.TrimSpace(token)
		user, err := authService.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "token inválido o expirado"})
			c.Abort()
			return
		}

		emp, err := svc.ResolveEmployee(c.Request.Context(), user.ID)
		if err != nil {
			if errors.Is(err, service.ErrForbidden) {
				c.JSON(http.StatusForbidden, gin.H{"success": false, "message": err.Error()})
			} else {
				log.Println("❌ Error resolviendo empleado:", err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "error interno, intente nuevamente"})
			}
			c.Abort()
			return
		}

		c.Set(employeeKey, emp)
		c.Next()
	}
}

// EmployeeFromContext devuelve el empleado resuelto por AuthMiddleware.
func EmployeeFromContext(c *gin.Context) (*model.Employee, bool) {
	v, ok := c.Get(employeeKey)
	if !ok {
		return nil, false
	}
	emp, ok := v.(*model.Employee)
	return emp, ok
}
