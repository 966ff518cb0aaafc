package broadcast

import (
	"github.com/DeviceTrust/DeviceTrust/pkg/dmlog"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmproto"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmutil"
	"go.uber.org/zap"
)

// Transport 承载广播字节的外部传输，真实电台/软总线不在本仓库范围内
type Transport interface {
	SendBroadcast(targetUdid string, payload []byte) error
}

// Sender 把关系变更事件编码成广播发给各对端
type Sender struct {
	localUdid string
	transport Transport
	dmlog.Log
}

func NewSender(localUdid string, transport Transport) *Sender {
	return &Sender{
		localUdid: localUdid,
		transport: transport,
		Log:       dmlog.NewDMLog("broadcastSender"),
	}
}

// SyncTrustRelationShip 给targets逐个发送关系变更广播
// 广播标签取本地秒数的10秒槽位，同一槽位内重复发送同一事件会在对端被去重
func (s *Sender) SyncTrustRelationShip(msg *dmproto.RelationShipChangeMsg, targets []string) error {
	if msg.BroadCastId == 0 {
		msg.BroadCastId = dmutil.CurrentBroadcastSlot()
	}
	if msg.PeerUdid == "" {
		// 对端视角里本机就是peer
		msg.PeerUdid = s.localUdid
	}
	data, err := dmproto.Encode(msg)
	if err != nil {
		s.Error("encode relationship change msg failed", zap.Error(err), zap.String("msg", msg.String()))
		return err
	}
	for _, target := range targets {
		if target == "" || target == s.localUdid {
			continue
		}
		if err := s.transport.SendBroadcast(target, data); err != nil {
			// 传输失败只记日志，广播本身就是尽力而为
			s.Warn("send broadcast failed", zap.Error(err), zap.String("target", target), zap.String("msg", msg.String()))
		}
	}
	return nil
}
