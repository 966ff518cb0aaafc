package broadcast

import (
	"github.com/DeviceTrust/DeviceTrust/internal/acl"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmdb"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmlog"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmproto"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmutil"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Receiver 入站广播管道：解码 -> 去重 -> 在本机引擎上执行镜像拆除
type Receiver struct {
	localUdid string
	engine    *acl.Engine
	dedup     *Dedup
	pool      *ants.Pool
	processed atomic.Int64
	dmlog.Log
}

func NewReceiver(localUdid string, engine *acl.Engine, dedup *Dedup, poolSize int) (*Receiver, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	return &Receiver{
		localUdid: localUdid,
		engine:    engine,
		dedup:     dedup,
		pool:      pool,
		Log:       dmlog.NewDMLog("broadcastReceiver"),
	}, nil
}

func (r *Receiver) Stop() {
	r.pool.Release()
}

// OnBroadcast 传输层投递原始字节，处理在协程池里异步执行
func (r *Receiver) OnBroadcast(data []byte) {
	if err := r.pool.Submit(func() {
		r.Handle(data)
	}); err != nil {
		r.Warn("submit broadcast to pool failed", zap.Error(err))
	}
}

// Handle 同步处理一条广播
func (r *Receiver) Handle(data []byte) {
	msg, err := dmproto.Decode(data)
	if err != nil {
		// 解码失败整条丢弃，不做部分应用
		r.Warn("discard broken broadcast", zap.Error(err))
		return
	}
	if !r.dedup.IsNewBroadCastId(msg) {
		return
	}
	r.apply(msg)
	r.processed.Inc()
}

// ProcessedCount 已应用的广播数
func (r *Receiver) ProcessedCount() int64 {
	return r.processed.Load()
}

func (r *Receiver) apply(msg *dmproto.RelationShipChangeMsg) {
	r.Info("apply relationship change", zap.String("msg", msg.String()))

	switch msg.Type {
	case dmproto.AccountLogout:
		_, err := r.engine.DeleteAclForAccountLogout(msg.PeerUdid, int32(msg.UserId), msg.AccountId)
		r.logApplyResult(msg, err)
	case dmproto.DeviceUnbind:
		_, err := r.engine.FilterNeedDeleteACL(0, r.localUdid, msg.PeerUdid, dmdb.BindLevelUser, "")
		r.logApplyResult(msg, err)
	case dmproto.AppUnbind:
		// 发送端的TokenId在本机视角是对端token，PeerTokenId才是本机侧
		extra := dmutil.ToJson(map[string]interface{}{"peerTokenId": msg.TokenId})
		_, err := r.engine.FilterNeedDeleteACL(int64(msg.PeerTokenId), r.localUdid, msg.PeerUdid, dmdb.BindLevelApp, extra)
		r.logApplyResult(msg, err)
	case dmproto.ServiceUnbind:
		extra := dmutil.ToJson(map[string]interface{}{"peerTokenId": msg.TokenId})
		_, err := r.engine.FilterNeedDeleteACL(int64(msg.PeerTokenId), r.localUdid, msg.PeerUdid, dmdb.BindLevelService, extra)
		r.logApplyResult(msg, err)
	case dmproto.SyncUserId:
		r.engine.UpdateAclStatusForUserIds(msg.PeerUdid, msg.UserIdInfos)
	case dmproto.DelUser:
		r.engine.DeleteAclForUserRemoved(msg.PeerUdid, int32(msg.UserId))
	case dmproto.StopUser:
		r.engine.DeactivateAclForUserStopped(msg.PeerUdid, int32(msg.UserId))
	case dmproto.ShareUnbind:
		_, err := r.engine.DeleteAclByCredId(msg.PeerUdid, msg.CredId)
		r.logApplyResult(msg, err)
	case dmproto.AppUninstall:
		_, err := r.engine.DeleteAclByTokenId(msg.PeerUdid, int64(msg.TokenId))
		r.logApplyResult(msg, err)
	}
}

func (r *Receiver) logApplyResult(msg *dmproto.RelationShipChangeMsg, err error) {
	if err != nil {
		r.Error("apply relationship change failed", zap.Error(err), zap.String("msg", msg.String()))
	}
}
