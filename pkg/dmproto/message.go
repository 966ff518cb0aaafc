package dmproto

import (
	"fmt"
	"strings"

	"github.com/DeviceTrust/DeviceTrust/pkg/dmutil"
)

// UserIdInfo SYNC_USERID消息里的单个用户条目，线上占2字节，
// 高字节的最高位是前台标记，所以userId不能超过0x7FFF
type UserIdInfo struct {
	UserId       uint16 // 用户id
	IsForeground bool   // 是否前台用户
}

// RelationShipChangeMsg 关系变更广播消息
// 由事件源构造，编码发出；接收端解码出新实例后立即消费，从不持久化
type RelationShipChangeMsg struct {
	Type           MsgType
	UserId         uint32
	AccountId      string
	TokenId        uint64
	PeerTokenId    uint64
	CredId         string
	PeerUdids      []string
	PeerUdid       string
	AccountName    string
	UserIdInfos    []UserIdInfo
	SyncUserIdFlag bool // 是否需要对端回应前台用户
	IsNewEvent     bool
	BroadCastId    uint8 // 广播标签，只用于去重，0表示不去重
}

// ToMapKey 生成去重键，包含除BroadCastId外的全部语义字段
func (m *RelationShipChangeMsg) ToMapKey() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("type:%d", m.Type))
	b.WriteString(fmt.Sprintf("_userId:%d", m.UserId))
	b.WriteString("_accountId:" + m.AccountId)
	b.WriteString(fmt.Sprintf("_tokenId:%d", m.TokenId))
	b.WriteString(fmt.Sprintf("_peerTokenId:%d", m.PeerTokenId))
	b.WriteString("_credId:" + m.CredId)
	b.WriteString("_peerUdid:" + m.PeerUdid)
	for _, info := range m.UserIdInfos {
		b.WriteString(fmt.Sprintf("_uid:%d-%d", info.UserId, dmutil.BoolToInt(info.IsForeground)))
	}
	b.WriteString(fmt.Sprintf("_syncFlag:%d", dmutil.BoolToInt(m.SyncUserIdFlag)))
	return b.String()
}

func (m *RelationShipChangeMsg) String() string {
	return fmt.Sprintf("Type:%s UserId:%d PeerUdid:%s BroadCastId:%d", m.Type, m.UserId, m.PeerUdid, m.BroadCastId)
}
