package dmdb

import (
	"github.com/DeviceTrust/DeviceTrust/pkg/dmutil"
)

// BindType 两个账号之间的关系类型
type BindType int32

const (
	BindTypeIdenticalAccount BindType = 1 // 同账号
	BindTypePointToPoint     BindType = 2 // 点对点（不同账号，显式配对）
	BindTypeAcrossAccount    BindType = 3 // 跨账号
)

// BindLevel 信任记录的粒度
type BindLevel int32

const (
	BindLevelUser    BindLevel = 1 // 整机
	BindLevelService BindLevel = 2 // 服务
	BindLevelApp     BindLevel = 3 // 应用
)

// Valid 粒度是否在合法范围内
func (b BindLevel) Valid() bool {
	return b >= BindLevelUser && b <= BindLevelApp
}

// ProfileStatus 信任记录状态
type ProfileStatus int32

const (
	ProfileStatusInactive ProfileStatus = 0 // 挂起（比如当前用户已切走），未删除
	ProfileStatusActive   ProfileStatus = 1
)

// Accesser 信任记录的一端身份，Accesser/Accessee结构对称
type Accesser struct {
	DeviceId     string `json:"deviceId"` // UDID
	UserId       int32  `json:"userId"`
	AccountId    string `json:"accountId"`
	TokenId      int64  `json:"tokenId"`
	BundleName   string `json:"bundleName"`
	CredentialId string `json:"credentialId"`
	SessionKeyId int32  `json:"sessionKeyId"`
	Status       int32  `json:"status"`
}

// AccessControlProfile 信任记录，一条记录连接一个accesser身份和一个accessee身份
// 本地引擎检查的记录里，accesser/accessee两端必有且仅有一端是本机
type AccessControlProfile struct {
	AccessControlId int64         `json:"accessControlId"` // 唯一标识，删除时必须
	Accesser        Accesser      `json:"accesser"`
	Accessee        Accesser      `json:"accessee"`
	BindType        BindType      `json:"bindType"`
	BindLevel       BindLevel     `json:"bindLevel"`
	Status          ProfileStatus `json:"status"`
	TrustDeviceId   string        `json:"trustDeviceId"` // 这条记录描述的对端UDID，主查询键
	ExtraData       string        `json:"extraData"`     // 自由JSON
}

// EmptyAclProfile EmptyAclProfile
var EmptyAclProfile = AccessControlProfile{}

// IsEmptyAclProfile IsEmptyAclProfile
func IsEmptyAclProfile(p AccessControlProfile) bool {
	return p.AccessControlId == 0 && p.TrustDeviceId == ""
}

// IsLnnAcl 这条记录是否只是因为两台设备同在一个软总线网络而存在，
// 而不是用户显式绑定的产物。这类记录不参与应用侧的信任判定
func (p AccessControlProfile) IsLnnAcl() bool {
	if p.ExtraData == "" {
		return false
	}
	extraMap, err := dmutil.JsonToMap(p.ExtraData)
	if err != nil {
		return false
	}
	v, ok := extraMap["isLnnAcl"]
	if !ok {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true"
	default:
		return false
	}
}
