package middleware

import (
	"github.com/gin-gonic/gin"
)

// RouteOpt 单条路由的附加中间件
type RouteOpt struct {
	Mids []gin.HandlerFunc
}

// POST 封装 r.POST，按 opt 插入路由级中间件
func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.POST(path, append(append([]gin.HandlerFunc{}, opt.Mids...), handler)...)
}

// GET 封装 r.GET
func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.GET(path, append(append([]gin.HandlerFunc{}, opt.Mids...), handler)...)
}
