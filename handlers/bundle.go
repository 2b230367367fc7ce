package handlers

import (
	"folio/middleware"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all your endpoint handlers into one struct.
type HandlerBundle struct {
	Verifier      middleware.TokenVerifier
	DefaultUserID string
	RatePerMin    int

	// Section endpoints
	ListSectionsHandler gin.HandlerFunc
	GetSectionHandler   gin.HandlerFunc
	WriteFieldHandler   gin.HandlerFunc
	DeleteFieldHandler  gin.HandlerFunc
	StreamHandler       gin.HandlerFunc

	// Layout endpoints
	GetLayoutHandler gin.HandlerFunc
	MoveHandler      gin.HandlerFunc
	ToggleHandler    gin.HandlerFunc
	SaveHandler      gin.HandlerFunc

	// Admin endpoints
	MigrateHandler gin.HandlerFunc

	// Upload endpoints
	UploadFilesHandler  gin.HandlerFunc
	UploadStatusHandler gin.HandlerFunc
	RetryUploadHandler  gin.HandlerFunc
}
