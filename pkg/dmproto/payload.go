package dmproto

import (
	"github.com/pkg/errors"
)

// EncodePayload 将消息编码为变体约定的定长字节载荷
func EncodePayload(msg *RelationShipChangeMsg) ([]byte, error) {
	switch msg.Type {
	case AccountLogout:
		return encodeAccountLogout(msg), nil
	case DeviceUnbind, DelUser, StopUser:
		return encodeUserIdOnly(msg), nil
	case AppUnbind, ServiceUnbind:
		return encodeAppUnbind(msg), nil
	case AppUninstall:
		return encodeAppUninstall(msg), nil
	case ShareUnbind:
		return encodeShareUnbind(msg), nil
	case SyncUserId:
		return encodeSyncUserId(msg)
	default:
		return nil, errors.Errorf("未知的消息类型: %d", msg.Type)
	}
}

// DecodePayload 按类型解码载荷，长度越界或字段读取失败时整条消息拒绝
func DecodePayload(msgType MsgType, payload []byte) (*RelationShipChangeMsg, error) {
	if !msgType.Valid() {
		return nil, errors.Errorf("未知的消息类型: %d", msgType)
	}
	if len(payload) >= InvalidPayloadSize {
		return nil, errors.Errorf("载荷长度超限: %d", len(payload))
	}
	switch msgType {
	case AccountLogout:
		return decodeAccountLogout(payload)
	case DeviceUnbind, DelUser, StopUser:
		return decodeUserIdOnly(msgType, payload)
	case AppUnbind, ServiceUnbind:
		return decodeAppUnbind(msgType, payload)
	case AppUninstall:
		return decodeAppUninstall(payload)
	case ShareUnbind:
		return decodeShareUnbind(payload)
	default:
		return decodeSyncUserId(payload)
	}
}

// 账号登出: userId[0:2] accountId[2:8] broadcastId[8:9]
func encodeAccountLogout(msg *RelationShipChangeMsg) []byte {
	enc := NewEncoder()
	enc.WriteUint16(uint16(msg.UserId))
	enc.WriteFixedString(msg.AccountId, AccountIdByteSize)
	enc.WriteUint8(msg.BroadCastId)
	return enc.Bytes()
}

func decodeAccountLogout(payload []byte) (*RelationShipChangeMsg, error) {
	if len(payload) < accountLogoutPayloadLen {
		return nil, errors.Errorf("账号登出载荷长度不足: %d", len(payload))
	}
	dec := NewDecoder(payload)
	msg := &RelationShipChangeMsg{Type: AccountLogout}
	userId, err := dec.Uint16()
	if err != nil {
		return nil, errors.Wrap(err, "解码userId失败！")
	}
	msg.UserId = uint32(userId)
	if msg.AccountId, err = dec.FixedString(AccountIdByteSize); err != nil {
		return nil, errors.Wrap(err, "解码accountId失败！")
	}
	if msg.BroadCastId, err = dec.Uint8(); err != nil {
		return nil, errors.Wrap(err, "解码broadCastId失败！")
	}
	return msg, nil
}

// 设备解绑/用户删除/用户停止: userId[0:2] broadcastId[2:3]
func encodeUserIdOnly(msg *RelationShipChangeMsg) []byte {
	enc := NewEncoder()
	enc.WriteUint16(uint16(msg.UserId))
	enc.WriteUint8(msg.BroadCastId)
	return enc.Bytes()
}

func decodeUserIdOnly(msgType MsgType, payload []byte) (*RelationShipChangeMsg, error) {
	if len(payload) < deviceUnbindPayloadLen {
		return nil, errors.Errorf("载荷长度不足: %d", len(payload))
	}
	dec := NewDecoder(payload)
	msg := &RelationShipChangeMsg{Type: msgType}
	userId, err := dec.Uint16()
	if err != nil {
		return nil, errors.Wrap(err, "解码userId失败！")
	}
	msg.UserId = uint32(userId)
	if msg.BroadCastId, err = dec.Uint8(); err != nil {
		return nil, errors.Wrap(err, "解码broadCastId失败！")
	}
	return msg, nil
}

// 应用/服务解绑: userId[0:2] tokenId[2:6] peerTokenId[6:10] broadcastId[10:11]
func encodeAppUnbind(msg *RelationShipChangeMsg) []byte {
	enc := NewEncoder()
	enc.WriteUint16(uint16(msg.UserId))
	enc.WriteUint32(uint32(msg.TokenId))
	enc.WriteUint32(uint32(msg.PeerTokenId))
	enc.WriteUint8(msg.BroadCastId)
	return enc.Bytes()
}

func decodeAppUnbind(msgType MsgType, payload []byte) (*RelationShipChangeMsg, error) {
	if len(payload) < appUnbindPayloadLen {
		return nil, errors.Errorf("应用解绑载荷长度不足: %d", len(payload))
	}
	dec := NewDecoder(payload)
	msg := &RelationShipChangeMsg{Type: msgType}
	userId, err := dec.Uint16()
	if err != nil {
		return nil, errors.Wrap(err, "解码userId失败！")
	}
	msg.UserId = uint32(userId)
	tokenId, err := dec.Uint32()
	if err != nil {
		return nil, errors.Wrap(err, "解码tokenId失败！")
	}
	msg.TokenId = uint64(tokenId)
	peerTokenId, err := dec.Uint32()
	if err != nil {
		return nil, errors.Wrap(err, "解码peerTokenId失败！")
	}
	msg.PeerTokenId = uint64(peerTokenId)
	if msg.BroadCastId, err = dec.Uint8(); err != nil {
		return nil, errors.Wrap(err, "解码broadCastId失败！")
	}
	return msg, nil
}

// 应用卸载: userId[0:2] tokenId[2:6] broadcastId[6:7]
func encodeAppUninstall(msg *RelationShipChangeMsg) []byte {
	enc := NewEncoder()
	enc.WriteUint16(uint16(msg.UserId))
	enc.WriteUint32(uint32(msg.TokenId))
	enc.WriteUint8(msg.BroadCastId)
	return enc.Bytes()
}

func decodeAppUninstall(payload []byte) (*RelationShipChangeMsg, error) {
	if len(payload) < appUninstallPayloadLen {
		return nil, errors.Errorf("应用卸载载荷长度不足: %d", len(payload))
	}
	dec := NewDecoder(payload)
	msg := &RelationShipChangeMsg{Type: AppUninstall}
	userId, err := dec.Uint16()
	if err != nil {
		return nil, errors.Wrap(err, "解码userId失败！")
	}
	msg.UserId = uint32(userId)
	tokenId, err := dec.Uint32()
	if err != nil {
		return nil, errors.Wrap(err, "解码tokenId失败！")
	}
	msg.TokenId = uint64(tokenId)
	if msg.BroadCastId, err = dec.Uint8(); err != nil {
		return nil, errors.Wrap(err, "解码broadCastId失败！")
	}
	return msg, nil
}

// 分享解绑: userId[0:2] credId[2:8] broadcastId[8:9]
func encodeShareUnbind(msg *RelationShipChangeMsg) []byte {
	enc := NewEncoder()
	enc.WriteUint16(uint16(msg.UserId))
	enc.WriteFixedString(msg.CredId, CredIdByteSize)
	enc.WriteUint8(msg.BroadCastId)
	return enc.Bytes()
}

func decodeShareUnbind(payload []byte) (*RelationShipChangeMsg, error) {
	if len(payload) < shareUnbindPayloadLen {
		return nil, errors.Errorf("分享解绑载荷长度不足: %d", len(payload))
	}
	dec := NewDecoder(payload)
	msg := &RelationShipChangeMsg{Type: ShareUnbind}
	userId, err := dec.Uint16()
	if err != nil {
		return nil, errors.Wrap(err, "解码userId失败！")
	}
	msg.UserId = uint32(userId)
	if msg.CredId, err = dec.FixedString(CredIdByteSize); err != nil {
		return nil, errors.Wrap(err, "解码credId失败！")
	}
	if msg.BroadCastId, err = dec.Uint8(); err != nil {
		return nil, errors.Wrap(err, "解码broadCastId失败！")
	}
	return msg, nil
}

// 前台用户同步: 头字节bit7=是否需要回应 bit6=新事件标记 bit0-2=条目数N(≤4)
// 之后N个2字节条目（高字节bit7为前台标记），broadcastId在2N+1处
func encodeSyncUserId(msg *RelationShipChangeMsg) ([]byte, error) {
	if len(msg.UserIdInfos) == 0 || len(msg.UserIdInfos) > MaxUserIdCount {
		return nil, errors.Errorf("用户条目数非法: %d", len(msg.UserIdInfos))
	}
	header := uint8(len(msg.UserIdInfos)) & 0x07
	if msg.SyncUserIdFlag {
		header |= 0x80
	}
	if msg.IsNewEvent {
		header |= 0x40
	}
	enc := NewEncoder()
	enc.WriteUint8(header)
	for _, info := range msg.UserIdInfos {
		if info.UserId > MaxSyncUserId {
			return nil, errors.Errorf("userId超出可表示范围: %d", info.UserId)
		}
		val := info.UserId
		if info.IsForeground {
			val |= 0x8000
		}
		enc.WriteUint16(val)
	}
	enc.WriteUint8(msg.BroadCastId)
	return enc.Bytes(), nil
}

func decodeSyncUserId(payload []byte) (*RelationShipChangeMsg, error) {
	if len(payload) < syncUserIdMinLen {
		return nil, errors.Errorf("用户同步载荷长度不足: %d", len(payload))
	}
	dec := NewDecoder(payload)
	msg := &RelationShipChangeMsg{Type: SyncUserId}
	header, err := dec.Uint8()
	if err != nil {
		return nil, errors.Wrap(err, "解码头字节失败！")
	}
	msg.SyncUserIdFlag = header&0x80 != 0
	msg.IsNewEvent = header&0x40 != 0
	count := int(header & 0x07)
	if count == 0 || count > MaxUserIdCount {
		return nil, errors.Errorf("用户条目数非法: %d", count)
	}
	if len(payload) < 2*count+2 {
		return nil, errors.Errorf("用户同步载荷长度不足: %d 条目数: %d", len(payload), count)
	}
	msg.UserIdInfos = make([]UserIdInfo, 0, count)
	for i := 0; i < count; i++ {
		val, err := dec.Uint16()
		if err != nil {
			return nil, errors.Wrap(err, "解码用户条目失败！")
		}
		msg.UserIdInfos = append(msg.UserIdInfos, UserIdInfo{
			UserId:       val & 0x7FFF,
			IsForeground: val&0x8000 != 0,
		})
	}
	if msg.BroadCastId, err = dec.Uint8(); err != nil {
		return nil, errors.Wrap(err, "解码broadCastId失败！")
	}
	return msg, nil
}
