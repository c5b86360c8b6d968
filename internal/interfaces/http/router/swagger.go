package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ledgerbook/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SwaggerPath serves the Swagger UI and the generated document at doc.json
const SwaggerPath = "/swagger"

// MountSwagger exposes the API documentation. Regenerate docs with
// `swag init -g cmd/server/main.go --parseInternal` after changing handler annotations.
func MountSwagger(engine *gin.Engine) Route {
	docs.SwaggerInfo.BasePath = APIBasePath
	engine.GET(SwaggerPath+"/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return Route{Group: "swagger", Method: http.MethodGet, Path: SwaggerPath + "/*any"}
}
