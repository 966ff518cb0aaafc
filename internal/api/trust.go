package api

import (
	"github.com/DeviceTrust/DeviceTrust/pkg/dmdb"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmhttp"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmlog"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmproto"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmutil"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// trust 信任关系相关API
type trust struct {
	s *Server
	dmlog.Log
}

func newTrust(s *Server) *trust {
	return &trust{
		s:   s,
		Log: dmlog.NewDMLog("trust"),
	}
}

func (t *trust) route(r *dmhttp.DMHttp) {
	r.GET("/acl", t.getAclList)                // 查询信任记录
	r.POST("/unbind/device", t.unbindDevice)   // 整机解绑
	r.POST("/unbind/app", t.unbindApp)         // 应用解绑
	r.POST("/unbind/service", t.unbindService) // 服务解绑
	r.POST("/account/logout", t.accountLogout) // 账号登出
	r.POST("/user/removed", t.userRemoved)     // 用户删除
	r.POST("/user/stopped", t.userStopped)     // 用户停止
}

// 查询信任记录，deviceId缺省为本机
func (t *trust) getAclList(c *dmhttp.Context) {
	deviceId := c.Query("deviceId")
	if deviceId == "" {
		deviceId = t.s.opts.LocalUdid
	}
	userId := int32(cast.ToInt(c.Query("userId")))
	profiles := t.s.engine.GetAclList(deviceId, userId)
	c.ResponseOKWithData(profiles)
}

// 整机解绑：本机先拆，再广播给对端做镜像拆除
func (t *trust) unbindDevice(c *dmhttp.Context) {
	var req struct {
		RemoteUdid string `json:"remoteUdid"`
		UserId     int32  `json:"userId"`
	}
	if _, err := BindJSON(&req, c); err != nil {
		t.Error("数据格式有误！", zap.Error(err))
		c.ResponseError(err)
		return
	}
	offlineParam, err := t.s.engine.FilterNeedDeleteACL(0, t.s.opts.LocalUdid, req.RemoteUdid, dmdb.BindLevelUser, "")
	if err != nil {
		t.Error("整机解绑失败！", zap.Error(err), zap.String("remoteUdid", req.RemoteUdid))
		c.ResponseError(err)
		return
	}
	_ = t.s.sender.SyncTrustRelationShip(&dmproto.RelationShipChangeMsg{
		Type:   dmproto.DeviceUnbind,
		UserId: uint32(req.UserId),
	}, []string{req.RemoteUdid})
	c.ResponseOKWithData(offlineParam)
}

// 应用解绑
func (t *trust) unbindApp(c *dmhttp.Context) {
	t.unbindByToken(c, dmdb.BindLevelApp, dmproto.AppUnbind)
}

// 服务解绑
func (t *trust) unbindService(c *dmhttp.Context) {
	t.unbindByToken(c, dmdb.BindLevelService, dmproto.ServiceUnbind)
}

func (t *trust) unbindByToken(c *dmhttp.Context, bindLevel dmdb.BindLevel, msgType dmproto.MsgType) {
	var req struct {
		RemoteUdid  string `json:"remoteUdid"`
		UserId      int32  `json:"userId"`
		TokenId     int64  `json:"tokenId"`     // 本机侧token
		PeerTokenId int64  `json:"peerTokenId"` // 对端侧token
	}
	if _, err := BindJSON(&req, c); err != nil {
		t.Error("数据格式有误！", zap.Error(err))
		c.ResponseError(err)
		return
	}
	extra := dmutil.ToJson(map[string]interface{}{"peerTokenId": req.PeerTokenId})
	offlineParam, err := t.s.engine.FilterNeedDeleteACL(req.TokenId, t.s.opts.LocalUdid, req.RemoteUdid, bindLevel, extra)
	if err != nil {
		t.Error("解绑失败！", zap.Error(err), zap.String("remoteUdid", req.RemoteUdid), zap.Int64("tokenId", req.TokenId))
		c.ResponseError(err)
		return
	}
	// 对端视角本机token才是它的peerTokenId
	_ = t.s.sender.SyncTrustRelationShip(&dmproto.RelationShipChangeMsg{
		Type:        msgType,
		UserId:      uint32(req.UserId),
		TokenId:     uint64(req.TokenId),
		PeerTokenId: uint64(req.PeerTokenId),
	}, []string{req.RemoteUdid})
	c.ResponseOKWithData(offlineParam)
}

// 账号登出：逐个对端拆同账号记录并广播
func (t *trust) accountLogout(c *dmhttp.Context) {
	var req struct {
		UserId    int32    `json:"userId"`
		AccountId string   `json:"accountId"`
		PeerUdids []string `json:"peerUdids"`
	}
	if _, err := BindJSON(&req, c); err != nil {
		t.Error("数据格式有误！", zap.Error(err))
		c.ResponseError(err)
		return
	}
	for _, peerUdid := range req.PeerUdids {
		if _, err := t.s.engine.DeleteAclForAccountLogout(peerUdid, req.UserId, req.AccountId); err != nil {
			t.Error("账号登出拆除失败！", zap.Error(err), zap.String("peerUdid", peerUdid))
		}
	}
	_ = t.s.sender.SyncTrustRelationShip(&dmproto.RelationShipChangeMsg{
		Type:      dmproto.AccountLogout,
		UserId:    uint32(req.UserId),
		AccountId: req.AccountId,
	}, req.PeerUdids)
	c.ResponseOK()
}

// 用户删除：拆掉该用户名下全部记录，再通知受影响的对端
func (t *trust) userRemoved(c *dmhttp.Context) {
	var req struct {
		UserId int32 `json:"userId"`
	}
	if _, err := BindJSON(&req, c); err != nil {
		t.Error("数据格式有误！", zap.Error(err))
		c.ResponseError(err)
		return
	}
	peers := t.s.engine.DeleteAclForUserRemoved(t.s.opts.LocalUdid, req.UserId)
	_ = t.s.sender.SyncTrustRelationShip(&dmproto.RelationShipChangeMsg{
		Type:   dmproto.DelUser,
		UserId: uint32(req.UserId),
	}, peers)
	c.ResponseOKWithData(peers)
}

// 用户停止：记录置挂起，不删除
func (t *trust) userStopped(c *dmhttp.Context) {
	var req struct {
		UserId int32 `json:"userId"`
	}
	if _, err := BindJSON(&req, c); err != nil {
		t.Error("数据格式有误！", zap.Error(err))
		c.ResponseError(err)
		return
	}
	peers := t.s.engine.DeactivateAclForUserStopped(t.s.opts.LocalUdid, req.UserId)
	_ = t.s.sender.SyncTrustRelationShip(&dmproto.RelationShipChangeMsg{
		Type:   dmproto.StopUser,
		UserId: uint32(req.UserId),
	}, peers)
	c.ResponseOKWithData(peers)
}
