package api

import (
	"io"

	"github.com/DeviceTrust/DeviceTrust/pkg/dmhttp"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmlog"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// broadcastAPI 广播注入入口，真实部署里由传输层直接投递
type broadcastAPI struct {
	s *Server
	dmlog.Log
}

func newBroadcastAPI(s *Server) *broadcastAPI {
	return &broadcastAPI{
		s:   s,
		Log: dmlog.NewDMLog("broadcastAPI"),
	}
}

func (b *broadcastAPI) route(r *dmhttp.DMHttp) {
	r.POST("/broadcast/receive", b.receive) // 注入一条原始广播
}

// receive 原始信封进来走完整接收管道：解码 -> 去重 -> 镜像拆除
// 同步处理，方便调用方马上查询结果
func (b *broadcastAPI) receive(c *dmhttp.Context) {
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		b.Error("读取广播体失败！", zap.Error(err))
		c.ResponseError(err)
		return
	}
	if len(bodyBytes) == 0 {
		c.ResponseError(errors.New("广播体不能为空！"))
		return
	}
	b.s.receiver.Handle(bodyBytes)
	c.ResponseOK()
}
