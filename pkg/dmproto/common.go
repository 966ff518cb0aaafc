package dmproto

import "fmt"

// MsgType 关系变更消息类型
type MsgType uint8

const (
	AccountLogout MsgType = iota // 账号登出
	DeviceUnbind                 // 设备解绑
	AppUnbind                    // 应用级解绑
	ServiceUnbind                // 服务级解绑
	SyncUserId                   // 前台用户同步
	DelUser                      // 用户删除
	StopUser                     // 用户停止
	ShareUnbind                  // 分享解绑
	AppUninstall                 // 应用卸载
)

func (m MsgType) String() string {
	switch m {
	case AccountLogout:
		return "ACCOUNT_LOGOUT"
	case DeviceUnbind:
		return "DEVICE_UNBIND"
	case AppUnbind:
		return "APP_UNBIND"
	case ServiceUnbind:
		return "SERVICE_UNBIND"
	case SyncUserId:
		return "SYNC_USERID"
	case DelUser:
		return "DEL_USER"
	case StopUser:
		return "STOP_USER"
	case ShareUnbind:
		return "SHARE_UNBIND"
	case AppUninstall:
		return "APP_UNINSTALL"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(m))
	}
}

// Valid 是否是已知的消息类型
func (m MsgType) Valid() bool {
	return m <= AppUninstall
}

const (
	// InvalidPayloadSize 载荷长度的硬上限，达到该长度的载荷一律拒绝
	InvalidPayloadSize = 12

	// AccountIdByteSize 载荷中账号标识的定长字节数
	AccountIdByteSize = 6
	// CredIdByteSize 载荷中凭据标识的定长字节数
	CredIdByteSize = 6

	// MaxUserIdCount SYNC_USERID一次最多携带的用户数
	MaxUserIdCount = 4
	// MaxSyncUserId SYNC_USERID条目里userId的上限（高位第15位保留给前台标记）
	MaxSyncUserId = 0x7FFF

	accountLogoutPayloadLen = 9
	deviceUnbindPayloadLen  = 3
	appUnbindPayloadLen     = 11
	appUninstallPayloadLen  = 7
	delUserPayloadLen       = 3
	shareUnbindPayloadLen   = 9
	syncUserIdMinLen        = 2
)
