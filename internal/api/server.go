package api

import (
	"io"
	"net/http"
	"time"

	"github.com/DeviceTrust/DeviceTrust/internal/acl"
	"github.com/DeviceTrust/DeviceTrust/internal/broadcast"
	"github.com/DeviceTrust/DeviceTrust/internal/options"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmhttp"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmlog"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmutil"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server 管理接口，信任事件的本地入口（解绑、登出、用户变更）
type Server struct {
	opts     *options.Options
	engine   *acl.Engine
	sender   *broadcast.Sender
	receiver *broadcast.Receiver
	dedup    *broadcast.Dedup
	r        *dmhttp.DMHttp
	uptime   time.Time
	dmlog.Log
}

func New(opts *options.Options, engine *acl.Engine, sender *broadcast.Sender, receiver *broadcast.Receiver, dedup *broadcast.Dedup) *Server {
	log := dmlog.NewDMLog("apiServer")
	s := &Server{
		opts:     opts,
		engine:   engine,
		sender:   sender,
		receiver: receiver,
		dedup:    dedup,
		r:        dmhttp.NewWithLogger(dmhttp.LoggerWithDmlog(log)),
		uptime:   time.Now(),
		Log:      log,
	}
	s.setRoutes()
	return s
}

func (s *Server) Start() {
	go func() {
		err := s.r.Run(s.opts.HTTPAddr)
		if err != nil {
			panic(err)
		}
	}()
	s.Info("ApiServer started", zap.String("addr", s.opts.HTTPAddr))
}

func (s *Server) Stop() {
	s.Debug("stop...")
}

// ServeHTTP 暴露给测试直接驱动路由
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.r.ServeHTTP(w, req)
}

func (s *Server) setRoutes() {
	s.r.GET("/health", func(c *dmhttp.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.r.GET("/varz", s.varz)

	tr := newTrust(s)
	tr.route(s.r)

	bc := newBroadcastAPI(s)
	bc.route(s.r)
}

// 运行状态速览
func (s *Server) varz(c *dmhttp.Context) {
	c.JSON(http.StatusOK, gin.H{
		"udid":       s.opts.LocalUdid,
		"uptime":     time.Since(s.uptime).String(),
		"processed":  s.receiver.ProcessedCount(),
		"suppressed": s.dedup.SuppressedCount(),
	})
}

func BindJSON(obj any, c *dmhttp.Context) ([]byte, error) {
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	if err := dmutil.ReadJsonByByte(bodyBytes, obj); err != nil {
		return nil, err
	}
	return bodyBytes, nil
}
