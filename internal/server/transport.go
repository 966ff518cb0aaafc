package server

import (
	"github.com/DeviceTrust/DeviceTrust/pkg/dmlog"
	"go.uber.org/zap"
)

// logTransport 缺省传输，只记日志不真正发送
// 真实部署里由软总线/电台侧实现broadcast.Transport后注入
type logTransport struct {
	dmlog.Log
}

func newLogTransport() *logTransport {
	return &logTransport{
		Log: dmlog.NewDMLog("logTransport"),
	}
}

func (l *logTransport) SendBroadcast(targetUdid string, payload []byte) error {
	l.Info("broadcast out", zap.String("target", targetUdid), zap.Int("size", len(payload)))
	return nil
}
