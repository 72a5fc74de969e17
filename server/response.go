package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/gears/errors"
)

// envelope wraps every successful admin response.
type envelope struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta accompanies list responses.
type Meta struct {
	Total int `json:"total"`
}

// RespondWithError renders err with the status of its code. Errors that are
// not AppErrors become a 500 without their message.
func RespondWithError(c *gin.Context, err error) {
	appErr := errors.From(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

func RespondOK(c *gin.Context, data any) { RespondOKWithMeta(c, data, nil) }

func RespondOKWithMeta(c *gin.Context, data any, meta *Meta) {
	c.JSON(http.StatusOK, envelope{Data: data, Meta: meta})
}

func RespondNoContent(c *gin.Context) { c.Status(http.StatusNoContent) }
