package acl

import (
	"github.com/DeviceTrust/DeviceTrust/pkg/dmdb"
)

// BindPriority 把(bindType, bindLevel)映射为数字优先级，取最大值者胜出。
// 这张表不是逻辑上的信任层级（跨账号/服务在数字上压过同账号），
// 存量设备按这套数值判定，必须原样保留。
func BindPriority(bindType dmdb.BindType, bindLevel dmdb.BindLevel) uint32 {
	switch bindType {
	case dmdb.BindTypeIdenticalAccount:
		return 5
	case dmdb.BindTypePointToPoint:
		switch bindLevel {
		case dmdb.BindLevelUser:
			return 3
		case dmdb.BindLevelService:
			return 6
		case dmdb.BindLevelApp:
			return 1
		}
	case dmdb.BindTypeAcrossAccount:
		switch bindLevel {
		case dmdb.BindLevelUser:
			return 4
		case dmdb.BindLevelService:
			return 7
		case dmdb.BindLevelApp:
			return 2
		}
	}
	return 0
}

// AuthFormOf bindType对应的信任形态
func AuthFormOf(bindType dmdb.BindType) AuthForm {
	switch bindType {
	case dmdb.BindTypeIdenticalAccount:
		return AuthFormIdenticalAccount
	case dmdb.BindTypePointToPoint:
		return AuthFormPeerToPeer
	case dmdb.BindTypeAcrossAccount:
		return AuthFormAcrossAccount
	default:
		return AuthFormInvalid
	}
}
