package acl

import (
	"github.com/DeviceTrust/DeviceTrust/internal/errors"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmdb"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmlog"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmproto"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmutil"
	"github.com/DeviceTrust/DeviceTrust/pkg/keylock"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Engine 信任记录的查询与拆除引擎
// 引擎自身不持跨调用状态，每次调用都重新查存储；
// 同一对端的拆除操作通过keyLock串行化，删除一律按主键幂等删除
type Engine struct {
	repo    *Repository
	keyLock *keylock.KeyLock
	dmlog.Log
}

func NewEngine(db dmdb.DB) *Engine {
	return &Engine{
		repo:    NewRepository(db),
		keyLock: keylock.NewKeyLock(),
		Log:     dmlog.NewDMLog("aclEngine"),
	}
}

// AddAclProfile 持久化一条新的信任记录（配对握手成功后由外部调用）
func (e *Engine) AddAclProfile(p dmdb.AccessControlProfile) (dmdb.AccessControlProfile, error) {
	return e.repo.Add(p)
}

// GetAclList 返回(deviceId,userId)出现在任意一端的全部记录
func (e *Engine) GetAclList(deviceId string, userId int32) []dmdb.AccessControlProfile {
	if deviceId == "" {
		return nil
	}
	var out []dmdb.AccessControlProfile
	for _, p := range e.repo.AllProfilesIncludeLnn() {
		if sideMatches(p.Accesser, deviceId, userId) || sideMatches(p.Accessee, deviceId, userId) {
			out = append(out, p)
		}
	}
	return out
}

// GetAclProfileByDeviceIdAndUserId 在GetAclList基础上再要求另一端是remoteDeviceId
func (e *Engine) GetAclProfileByDeviceIdAndUserId(deviceId string, userId int32, remoteDeviceId string) []dmdb.AccessControlProfile {
	if deviceId == "" || remoteDeviceId == "" {
		return nil
	}
	var out []dmdb.AccessControlProfile
	for _, p := range e.repo.AllProfilesIncludeLnn() {
		if sideMatches(p.Accesser, deviceId, userId) && p.Accessee.DeviceId == remoteDeviceId {
			out = append(out, p)
			continue
		}
		if sideMatches(p.Accessee, deviceId, userId) && p.Accesser.DeviceId == remoteDeviceId {
			out = append(out, p)
		}
	}
	return out
}

// CheckBindType 遍历对端的全部非LNN记录，返回优先级表里的最大值
func (e *Engine) CheckBindType(peerUdid string, localUdid string) uint32 {
	if peerUdid == "" || localUdid == "" {
		return 0
	}
	var max uint32
	for _, p := range e.repo.AllProfiles() {
		if p.TrustDeviceId != peerUdid {
			continue
		}
		if v := BindPriority(p.BindType, p.BindLevel); v > max {
			max = v
		}
	}
	return max
}

// HandleDmAuthForm 把一条记录折算成对应用侧的信任形态
// 同账号无条件成立；点对点/跨账号在整机粒度无条件成立；
// 应用/服务粒度要求发现方的包名和设备id对得上记录的一端；
// LNN记录从不贡献正向形态
func (e *Engine) HandleDmAuthForm(p dmdb.AccessControlProfile, discovery DiscoveryInfo) AuthForm {
	if p.BindType == dmdb.BindTypeIdenticalAccount {
		return AuthFormIdenticalAccount
	}
	if p.IsLnnAcl() {
		return AuthFormInvalid
	}
	form := AuthFormOf(p.BindType)
	if form == AuthFormInvalid {
		return AuthFormInvalid
	}
	if p.BindLevel == dmdb.BindLevelUser {
		return form
	}
	if (p.Accesser.BundleName == discovery.PkgName && p.Accesser.DeviceId == discovery.LocalDeviceId) ||
		(p.Accessee.BundleName == discovery.PkgName && p.Accessee.DeviceId == discovery.LocalDeviceId) {
		return form
	}
	return AuthFormInvalid
}

// FilterNeedDeleteACL 按粒度选定删除策略，计算删除集合和删完后的残余状态
func (e *Engine) FilterNeedDeleteACL(tokenId int64, localUdid string, remoteUdid string, bindLevel dmdb.BindLevel, extra string) (DmOfflineParam, error) {
	offlineParam := DmOfflineParam{BindType: bindLevel}
	if localUdid == "" || remoteUdid == "" {
		return offlineParam, errors.ErrUdidEmpty
	}
	if !bindLevel.Valid() {
		return offlineParam, errors.ErrInvalidBindLevel
	}
	peerBundleName, peerTokenId, hasPeerInfo := parsePeerExtra(extra)

	e.keyLock.Lock(remoteUdid)
	defer e.keyLock.Unlock(remoteUdid)

	var bindNums, deleteNums int32
	for _, p := range e.repo.ProfilesByTrustDeviceId(remoteUdid) {
		if p.BindType == dmdb.BindTypeIdenticalAccount {
			// 同账号记录只随账号登出拆除
			continue
		}
		local, peer, ok := splitSides(p, localUdid, remoteUdid)
		if !ok {
			continue
		}
		switch bindLevel {
		case dmdb.BindLevelApp, dmdb.BindLevelService:
			if p.BindLevel != bindLevel {
				continue
			}
			bindNums++
			if local.TokenId != tokenId {
				// 不是这个应用/服务发起的绑定
				continue
			}
			if hasPeerInfo {
				// extra里指定了对端应用，只删这一对绑定
				if peer.TokenId != peerTokenId {
					continue
				}
				if peerBundleName != "" && peer.BundleName != peerBundleName {
					continue
				}
			}
			e.deleteProfile(p, local, peer, remoteUdid, &offlineParam)
			deleteNums++
		case dmdb.BindLevelUser:
			if p.IsLnnAcl() {
				continue
			}
			bindNums++
			e.deleteProfile(p, local, peer, remoteUdid, &offlineParam)
			deleteNums++
		}
	}
	offlineParam.LeftAclNumber = bindNums - deleteNums
	e.checkLastLnnAcl(localUdid, remoteUdid, &offlineParam)
	return offlineParam, nil
}

// CheckAccessControl 鉴权：任意一条ACTIVE记录满足即通过
func (e *Engine) CheckAccessControl(caller IdentityInfo, srcUdid string, callee IdentityInfo, sinkUdid string) bool {
	if srcUdid == "" || sinkUdid == "" {
		return false
	}
	for _, p := range e.accessCandidates(caller, srcUdid, callee, sinkUdid) {
		if e.singleUserProcess(p, caller, callee) {
			return true
		}
	}
	return false
}

// CheckIsSameAccount 两端是否同账号互信
func (e *Engine) CheckIsSameAccount(caller IdentityInfo, srcUdid string, callee IdentityInfo, sinkUdid string) bool {
	if srcUdid == "" || sinkUdid == "" {
		return false
	}
	for _, p := range e.accessCandidates(caller, srcUdid, callee, sinkUdid) {
		if p.BindType == dmdb.BindTypeIdenticalAccount && !p.IsLnnAcl() {
			return true
		}
	}
	return false
}

// DeleteAclForAccountLogout 账号登出时拆除与对端之间这个账号的同账号记录
func (e *Engine) DeleteAclForAccountLogout(peerUdid string, userId int32, accountId string) (DmOfflineParam, error) {
	offlineParam := DmOfflineParam{BindType: dmdb.BindLevelUser}
	if peerUdid == "" {
		return offlineParam, errors.ErrUdidEmpty
	}

	e.keyLock.Lock(peerUdid)
	defer e.keyLock.Unlock(peerUdid)

	var bindNums, deleteNums int32
	for _, p := range e.repo.ProfilesByTrustDeviceId(peerUdid) {
		if p.BindType != dmdb.BindTypeIdenticalAccount {
			continue
		}
		bindNums++
		if !accountSideMatches(p.Accesser, userId, accountId) && !accountSideMatches(p.Accessee, userId, accountId) {
			continue
		}
		local, peer := p.Accesser, p.Accessee
		if peer.DeviceId != peerUdid {
			local, peer = peer, local
		}
		e.deleteProfile(p, local, peer, peerUdid, &offlineParam)
		deleteNums++
	}
	offlineParam.LeftAclNumber = bindNums - deleteNums
	e.checkLastLnnAcl("", peerUdid, &offlineParam)
	return offlineParam, nil
}

// DeleteAclForUserRemoved 用户被删除时拆除该用户名下的全部记录，返回受影响的对端udid
func (e *Engine) DeleteAclForUserRemoved(localUdid string, userId int32) []string {
	if localUdid == "" {
		return nil
	}
	peerSet := make(map[string]struct{})
	for _, p := range e.repo.AllProfilesIncludeLnn() {
		if !sideMatches(p.Accesser, localUdid, userId) && !sideMatches(p.Accessee, localUdid, userId) {
			continue
		}
		if err := e.repo.Delete(p.AccessControlId); err != nil {
			continue
		}
		peerSet[p.TrustDeviceId] = struct{}{}
	}
	peers := make([]string, 0, len(peerSet))
	for udid := range peerSet {
		peers = append(peers, udid)
	}
	return peers
}

// DeactivateAclForUserStopped 用户停止时把该用户名下的记录置为挂起，不删除
func (e *Engine) DeactivateAclForUserStopped(localUdid string, userId int32) []string {
	if localUdid == "" {
		return nil
	}
	peerSet := make(map[string]struct{})
	for _, p := range e.repo.AllProfilesIncludeLnn() {
		if !sideMatches(p.Accesser, localUdid, userId) && !sideMatches(p.Accessee, localUdid, userId) {
			continue
		}
		if p.Status == dmdb.ProfileStatusInactive {
			continue
		}
		p.Status = dmdb.ProfileStatusInactive
		if err := e.repo.Update(p); err != nil {
			continue
		}
		peerSet[p.TrustDeviceId] = struct{}{}
	}
	peers := make([]string, 0, len(peerSet))
	for udid := range peerSet {
		peers = append(peers, udid)
	}
	return peers
}

// DeleteAclByTokenId 应用卸载后拆除与对端之间该tokenId参与的非同账号记录
func (e *Engine) DeleteAclByTokenId(peerUdid string, tokenId int64) (DmOfflineParam, error) {
	offlineParam := DmOfflineParam{BindType: dmdb.BindLevelApp}
	if peerUdid == "" {
		return offlineParam, errors.ErrUdidEmpty
	}

	e.keyLock.Lock(peerUdid)
	defer e.keyLock.Unlock(peerUdid)

	var bindNums, deleteNums int32
	for _, p := range e.repo.ProfilesByTrustDeviceId(peerUdid) {
		if p.BindType == dmdb.BindTypeIdenticalAccount {
			continue
		}
		if p.BindLevel != dmdb.BindLevelApp && p.BindLevel != dmdb.BindLevelService {
			continue
		}
		bindNums++
		if p.Accesser.TokenId != tokenId && p.Accessee.TokenId != tokenId {
			continue
		}
		local, peer := p.Accesser, p.Accessee
		if peer.DeviceId != peerUdid {
			local, peer = peer, local
		}
		e.deleteProfile(p, local, peer, peerUdid, &offlineParam)
		deleteNums++
	}
	offlineParam.LeftAclNumber = bindNums - deleteNums
	e.checkLastLnnAcl("", peerUdid, &offlineParam)
	return offlineParam, nil
}

// DeleteAclByCredId 分享解绑，按凭据标识拆除
func (e *Engine) DeleteAclByCredId(peerUdid string, credId string) (DmOfflineParam, error) {
	offlineParam := DmOfflineParam{BindType: dmdb.BindLevelApp}
	if peerUdid == "" || credId == "" {
		return offlineParam, errors.ErrUdidEmpty
	}

	e.keyLock.Lock(peerUdid)
	defer e.keyLock.Unlock(peerUdid)

	var bindNums, deleteNums int32
	for _, p := range e.repo.ProfilesByTrustDeviceId(peerUdid) {
		if p.BindType == dmdb.BindTypeIdenticalAccount {
			continue
		}
		bindNums++
		if p.Accesser.CredentialId != credId && p.Accessee.CredentialId != credId {
			continue
		}
		local, peer := p.Accesser, p.Accessee
		if peer.DeviceId != peerUdid {
			local, peer = peer, local
		}
		e.deleteProfile(p, local, peer, peerUdid, &offlineParam)
		deleteNums++
	}
	offlineParam.LeftAclNumber = bindNums - deleteNums
	e.checkLastLnnAcl("", peerUdid, &offlineParam)
	return offlineParam, nil
}

// UpdateAclStatusForUserIds 对端同步前台用户后刷新记录状态：
// 前台用户的记录转ACTIVE，后台用户的转INACTIVE，列表里不存在的用户记录删除
func (e *Engine) UpdateAclStatusForUserIds(peerUdid string, infos []dmproto.UserIdInfo) {
	if peerUdid == "" || len(infos) == 0 {
		return
	}
	foreground := make(map[int32]bool, len(infos))
	for _, info := range infos {
		foreground[int32(info.UserId)] = info.IsForeground
	}

	e.keyLock.Lock(peerUdid)
	defer e.keyLock.Unlock(peerUdid)

	for _, p := range e.repo.ProfilesByTrustDeviceId(peerUdid) {
		peer := p.Accesser
		if peer.DeviceId != peerUdid {
			peer = p.Accessee
		}
		if peer.DeviceId != peerUdid {
			continue
		}
		isFg, exist := foreground[peer.UserId]
		if !exist {
			// 对端已经没有这个用户
			_ = e.repo.Delete(p.AccessControlId)
			continue
		}
		status := dmdb.ProfileStatusInactive
		if isFg {
			status = dmdb.ProfileStatusActive
		}
		if p.Status == status {
			continue
		}
		p.Status = status
		_ = e.repo.Update(p)
	}
}

// accessCandidates 过滤出两端身份都对得上的ACTIVE记录
// accesser端userId允许0/-1通配，accessee端允许0通配，两种配对方向都接受
func (e *Engine) accessCandidates(caller IdentityInfo, srcUdid string, callee IdentityInfo, sinkUdid string) []dmdb.AccessControlProfile {
	var out []dmdb.AccessControlProfile
	for _, p := range e.repo.AllProfilesIncludeLnn() {
		if p.Status != dmdb.ProfileStatusActive {
			continue
		}
		if p.TrustDeviceId != srcUdid && p.TrustDeviceId != sinkUdid {
			continue
		}
		forward := accessSideMatches(p.Accesser, srcUdid, caller.UserId, true) &&
			accessSideMatches(p.Accessee, sinkUdid, callee.UserId, false)
		backward := accessSideMatches(p.Accesser, sinkUdid, callee.UserId, true) &&
			accessSideMatches(p.Accessee, srcUdid, caller.UserId, false)
		if forward || backward {
			out = append(out, p)
		}
	}
	return out
}

// singleUserProcess 单条记录能否满足鉴权
func (e *Engine) singleUserProcess(p dmdb.AccessControlProfile, caller IdentityInfo, callee IdentityInfo) bool {
	switch p.BindType {
	case dmdb.BindTypeIdenticalAccount:
		return true
	case dmdb.BindTypePointToPoint, dmdb.BindTypeAcrossAccount:
		if p.BindLevel == dmdb.BindLevelUser {
			return !p.IsLnnAcl()
		}
		// 应用/服务粒度：tokenId全零是通配，否则要正反任一方向对上
		if p.Accesser.TokenId == 0 && p.Accessee.TokenId == 0 {
			return true
		}
		if p.Accesser.TokenId == caller.TokenId && p.Accessee.TokenId == callee.TokenId {
			return true
		}
		if p.Accesser.TokenId == callee.TokenId && p.Accessee.TokenId == caller.TokenId {
			return true
		}
	}
	return false
}

// checkLastLnnAcl 删完后如果只剩一条LNN记录，把它的会话密钥/凭据标识缓存进
// offlineParam并置hasLnnAcl，表示设备仍可达但已无应用层信任
func (e *Engine) checkLastLnnAcl(localUdid string, remoteUdid string, offlineParam *DmOfflineParam) {
	remaining := e.repo.ProfilesByTrustDeviceId(remoteUdid)
	if len(remaining) != 1 || !remaining[0].IsLnnAcl() {
		return
	}
	p := remaining[0]
	peer := p.Accesser
	if localUdid != "" && peer.DeviceId == localUdid {
		peer = p.Accessee
	} else if peer.DeviceId != remoteUdid && p.Accessee.DeviceId == remoteUdid {
		peer = p.Accessee
	}
	offlineParam.HasLnnAcl = true
	offlineParam.DmAclIdParamVec = append(offlineParam.DmAclIdParamVec, AclIdParam{
		Udid:            remoteUdid,
		UserId:          peer.UserId,
		SkId:            peer.SessionKeyId,
		CredId:          peer.CredentialId,
		AccessControlId: p.AccessControlId,
	})
	e.Debug("only lnn acl left", zap.String("remoteUdid", remoteUdid), zap.Int64("accessControlId", p.AccessControlId))
}

func (e *Engine) deleteProfile(p dmdb.AccessControlProfile, local dmdb.Accesser, peer dmdb.Accesser, remoteUdid string, offlineParam *DmOfflineParam) {
	if err := e.repo.Delete(p.AccessControlId); err != nil {
		return
	}
	offlineParam.ProcessVec = append(offlineParam.ProcessVec, ProcessInfo{
		PkgName: local.BundleName,
		UserId:  local.UserId,
	})
	offlineParam.DmAclIdParamVec = append(offlineParam.DmAclIdParamVec, AclIdParam{
		Udid:            remoteUdid,
		UserId:          peer.UserId,
		SkId:            peer.SessionKeyId,
		CredId:          peer.CredentialId,
		AccessControlId: p.AccessControlId,
	})
}

func sideMatches(s dmdb.Accesser, deviceId string, userId int32) bool {
	return s.DeviceId == deviceId && s.UserId == userId
}

func accountSideMatches(s dmdb.Accesser, userId int32, accountId string) bool {
	return s.UserId == userId && s.AccountId == accountId
}

func accessSideMatches(s dmdb.Accesser, deviceId string, userId int32, allowNegativeWildcard bool) bool {
	if s.DeviceId != deviceId {
		return false
	}
	if userId == 0 {
		return true
	}
	if allowNegativeWildcard && userId == -1 {
		return true
	}
	return s.UserId == userId
}

func splitSides(p dmdb.AccessControlProfile, localUdid string, remoteUdid string) (local dmdb.Accesser, peer dmdb.Accesser, ok bool) {
	if p.Accesser.DeviceId == localUdid && p.Accessee.DeviceId == remoteUdid {
		return p.Accesser, p.Accessee, true
	}
	if p.Accessee.DeviceId == localUdid && p.Accesser.DeviceId == remoteUdid {
		return p.Accessee, p.Accesser, true
	}
	return dmdb.Accesser{}, dmdb.Accesser{}, false
}

// parsePeerExtra 从extra JSON里取对端应用标识，容忍缺失和畸形输入
func parsePeerExtra(extra string) (peerBundleName string, peerTokenId int64, has bool) {
	if extra == "" {
		return "", 0, false
	}
	extraMap, err := dmutil.JsonToMap(extra)
	if err != nil {
		return "", 0, false
	}
	tokenVal, ok := extraMap["peerTokenId"]
	if !ok {
		return "", 0, false
	}
	peerTokenId = cast.ToInt64(tokenVal)
	peerBundleName = cast.ToString(extraMap["peerBundleName"])
	return peerBundleName, peerTokenId, true
}
