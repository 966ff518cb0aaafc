package acl

import (
	"github.com/DeviceTrust/DeviceTrust/pkg/dmdb"
)

// AuthForm 对应用侧暴露的信任形态
type AuthForm int32

const (
	AuthFormInvalid          AuthForm = -1
	AuthFormPeerToPeer       AuthForm = 0
	AuthFormIdenticalAccount AuthForm = 1
	AuthFormAcrossAccount    AuthForm = 2
)

// DiscoveryInfo 发现方的身份，用于应用/服务粒度的信任判定
type DiscoveryInfo struct {
	PkgName       string // 发起查询的包名
	LocalDeviceId string // 发起方设备UDID
}

// IdentityInfo 鉴权调用的一端身份
type IdentityInfo struct {
	UserId    int32
	TokenId   int64
	AccountId string
}

// ProcessInfo 拆除后需要通知的进程
type ProcessInfo struct {
	PkgName string
	UserId  int32
}

// AclIdParam 拆除后需要吊销的会话密钥/凭据材料
type AclIdParam struct {
	Udid            string
	UserId          int32
	SkId            int32
	CredId          string
	AccessControlId int64
}

// DmOfflineParam 一次拆除操作的聚合结果，只在调用内存活，不落盘
// BindType字段名沿用存量接口，含义是本次拆除的粒度
type DmOfflineParam struct {
	BindType        dmdb.BindLevel
	LeftAclNumber   int32 // 同粒度下删完后剩余的绑定数，决定设备是否整体离线
	ProcessVec      []ProcessInfo
	DmAclIdParamVec []AclIdParam
	HasLnnAcl       bool // 删完后是否只剩一条LNN记录
}
