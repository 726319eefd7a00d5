package response

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/lexbridge-backend/internal/platform/apierr"
)

type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func OK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

func Err(c *gin.Context, err error) {
	ae := apierr.From(err)
	c.JSON(ae.Status, Envelope{Success: false, Error: &ErrorBody{Code: ae.Code, Message: ae.Error()}})
}
