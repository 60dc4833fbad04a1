package respond

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// Private writes a 200 response that caches must not keep. Used for
// payloads derived from a customer's document.
func Private(c *gin.Context, payload interface{}) {
	c.Header("Cache-Control", "no-store")
	JSON(c, http.StatusOK, payload)
}

// Attachment writes a downloadable file.
func Attachment(c *gin.Context, contentType, fileName string, data []byte) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	c.Data(http.StatusOK, contentType, data)
}
