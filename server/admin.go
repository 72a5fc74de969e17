package server

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/gears/engine/local"
	"github.com/kbukum/gears/errors"
	"github.com/kbukum/gears/validation"
)

// Admin is the engine surface the admin routes expose.
type Admin interface {
	Registrations() []local.RegistrationInfo
	Registration(id string) (local.RegistrationInfo, bool)
	Unregister(ctx context.Context, id string) error
	Execute(ctx context.Context, args ...string) (any, error)
}

var _ Admin = (*local.Engine)(nil)

// ExecuteRequest is the body of POST /v1/execute.
type ExecuteRequest struct {
	Args []string `json:"args" binding:"required,min=1"`
}

// RegisterAdmin adds the /v1 routes backed by admin.
func (s *Server) RegisterAdmin(admin Admin) {
	v1 := s.engine.Group("/v1")
	v1.GET("/registrations", listRegistrations(admin))
	v1.GET("/registrations/:id", getRegistration(admin))
	v1.DELETE("/registrations/:id", unregister(admin))
	v1.POST("/execute", execute(admin))
}

func listRegistrations(admin Admin) gin.HandlerFunc {
	return func(c *gin.Context) {
		regs := admin.Registrations()
		RespondOKWithMeta(c, regs, &Meta{Total: len(regs)})
	}
}

func getRegistration(admin Admin) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := validation.New().RequiredUUID("id", id).Validate(); err != nil {
			RespondWithError(c, err)
			return
		}
		info, ok := admin.Registration(id)
		if !ok {
			RespondWithError(c, errors.NotFound("registration", id))
			return
		}
		RespondOK(c, info)
	}
}

func unregister(admin Admin) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := validation.New().RequiredUUID("id", id).Validate(); err != nil {
			RespondWithError(c, err)
			return
		}
		if err := admin.Unregister(c.Request.Context(), id); err != nil {
			RespondWithError(c, err)
			return
		}
		RespondNoContent(c)
	}
}

func execute(admin Admin) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ExecuteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondWithError(c, errors.InvalidInput("args", err.Error()))
			return
		}
		if err := validation.New().Required("args[0]", req.Args[0]).Validate(); err != nil {
			RespondWithError(c, err)
			return
		}
		reply, err := admin.Execute(c.Request.Context(), req.Args...)
		if err != nil {
			if _, ok := errors.AsAppError(err); !ok {
				err = errors.ExternalServiceError("store", err)
			}
			RespondWithError(c, err)
			return
		}
		RespondOK(c, reply)
	}
}
