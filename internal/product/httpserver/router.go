package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mbelenkov/microshop/internal/product/middleware"
)

type Deps struct {
	Product   *ProductHTTP
	JWTSecret []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	products := e.Group("/products", middleware.RequireAuth(d.JWTSecret))
	products.POST("", d.Product.CreateProduct)
}
