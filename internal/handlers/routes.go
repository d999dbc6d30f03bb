package handlers

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"voucher-market/internal/auth"
	"voucher-market/internal/middleware"
	"voucher-market/internal/models"
)

// Routes bundles the handlers mounted under /api
type Routes struct {
	Auth        *AuthHandler
	Vouchers    *VoucherHandler
	Partners    *PartnerHandler
	Categories  *CategoryHandler
	Admin       *AdminHandler
	Tokens      *auth.TokenManager
	AuthLimiter *middleware.RateLimiter
}

var registerTagNames sync.Once

// Register mounts all API routes on router
func (rt *Routes) Register(router gin.IRouter) {
	registerTagNames.Do(useJSONFieldNames)

	required := rt.Tokens.Middleware()
	optional := rt.Tokens.OptionalMiddleware()

	api := router.Group("/api")

	authRoutes := api.Group("/auth")
	if rt.AuthLimiter != nil {
		authRoutes.Use(rt.AuthLimiter.Middleware())
	}
	{
		authRoutes.POST("/otp/request", rt.Auth.RequestOTP)
		authRoutes.POST("/otp/verify", rt.Auth.VerifyOTP)
		authRoutes.POST("/babsy/verify", rt.Auth.BabsyVerify)
		authRoutes.POST("/logout", rt.Auth.Logout)
		authRoutes.GET("/me", required, rt.Auth.GetMe)
	}

	api.GET("/categories", rt.Categories.ListCategories)

	vouchers := api.Group("/vouchers")
	{
		vouchers.GET("", rt.Vouchers.ListVouchers)
		vouchers.GET("/:id", rt.Vouchers.GetVoucher)
		vouchers.GET("/:id/qrcode", rt.Vouchers.GetQRCode)
		vouchers.GET("/:id/redeem", optional, rt.Vouchers.CheckEligibility)
		vouchers.POST("/:id/redeem", required, rt.Vouchers.Redeem)
		vouchers.POST("", required, rt.Vouchers.CreateVoucher)
		vouchers.PATCH("/:id", required, rt.Vouchers.UpdateVoucher)
		vouchers.DELETE("/:id", required, rt.Vouchers.DeleteVoucher)
	}

	partners := api.Group("/partners")
	{
		partners.GET("", rt.Partners.ListPartners)
		partners.POST("", required, rt.Partners.Register)
		partners.GET("/me", required, rt.Partners.GetMyPartner)
		partners.PATCH("/me", required, rt.Partners.UpdateMyPartner)
	}

	admin := api.Group("/admin")
	admin.Use(required, auth.RequireRole(models.UserRoleAdmin))
	{
		admin.POST("/partners/:id/approve", rt.Admin.ApprovePartner)
	}
}

// useJSONFieldNames makes validation errors report JSON field names
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
}
