package server

import (
	"app/internal/config"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, cfg config.Config, hs Handlers) {
	hs.Auth.RegisterRoutes(e)
	hs.Product.RegisterRoutes(e)

	hs.Cart.RegisterRoutes(e, cfg)
	hs.Order.RegisterRoutes(e, cfg)

	hs.AdminProduct.RegisterRoutes(e, cfg)
	hs.AdminOrder.RegisterRoutes(e, cfg)
	hs.AdminUser.RegisterRoutes(e, cfg)
	hs.Report.RegisterRoutes(e, cfg)
}
