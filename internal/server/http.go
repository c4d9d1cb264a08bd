package server

import (
	"encoding/json"
	stdhttp "net/http"
	"time"

	"github.com/SunshineAppV2/cantinhomda-sub002/internal/conf"
	"github.com/SunshineAppV2/cantinhomda-sub002/internal/service"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewHTTPServer)

// healthReply 健康检查响应
type healthReply struct {
	Service string `json:"service"`
	Status  string `json:"status"`
	Time    string `json:"time"`
}

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Bootstrap, billing *service.BillingService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
		http.ErrorEncoder(customErrorEncoder),
	}
	if c.Server.Http.Addr != "" {
		opts = append(opts, http.Address(c.Server.Http.Addr))
	}
	srv := http.NewServer(opts...)

	// 注册业务路由
	r := srv.Route("/v1")
	r.GET("/tenants/{id}/billing", billing.GetBillingStatus)
	r.GET("/tenants/{id}/billing/history", billing.GetStatusHistory)
	r.POST("/tenants/{id}/access/login", billing.CheckLoginAccess)
	r.POST("/tenants/{id}/access/write", billing.CheckWriteAccess)
	r.POST("/tenants/{id}/reactivate", billing.Reactivate)
	r.POST("/tenants/{id}/approve", billing.Approve)
	r.POST("/tenants/{id}/cancel", billing.Cancel)
	r.POST("/billing/sweep", billing.RunSweep)

	// 注册健康检查端点
	srv.Route("/").GET("/health", func(ctx http.Context) error {
		return ctx.Result(200, &healthReply{
			Service: "club-billing-service",
			Status:  "ok",
			Time:    time.Now().UTC().Format(time.RFC3339),
		})
	})

	return srv
}

func customErrorEncoder(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	se := kerrors.FromError(err)
	status := stdhttp.StatusInternalServerError
	response := map[string]interface{}{
		"code":    status,
		"message": "internal server error",
	}

	if se != nil {
		status = mapErrorStatus(int(se.Code))
		response["code"] = se.Code
		response["reason"] = se.Reason
		response["message"] = se.Message
		if len(se.Metadata) > 0 {
			response["metadata"] = se.Metadata
		}
	} else if err != nil {
		response["message"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func mapErrorStatus(code int) int {
	if code >= 100 && code < 600 {
		return code
	}
	return stdhttp.StatusInternalServerError
}
