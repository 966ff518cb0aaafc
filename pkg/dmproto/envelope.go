package dmproto

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Envelope 广播消息的外层JSON信封
// VALUE是载荷字节逐个转成的整数数组，PEER_UDID在解码时必须存在
type Envelope struct {
	Type      int    `json:"TYPE"`
	Value     []int  `json:"VALUE"`
	PeerUdid  string `json:"PEER_UDID"`
	AccountId string `json:"ACCOUNTID,omitempty"`
}

type rawEnvelope struct {
	Type      *int    `json:"TYPE"`
	Value     []int   `json:"VALUE"`
	PeerUdid  *string `json:"PEER_UDID"`
	AccountId string  `json:"ACCOUNTID"`
}

// Encode 编码消息为信封JSON
func Encode(msg *RelationShipChangeMsg) ([]byte, error) {
	payload, err := EncodePayload(msg)
	if err != nil {
		return nil, err
	}
	value := make([]int, len(payload))
	for i, b := range payload {
		value[i] = int(b)
	}
	env := Envelope{
		Type:      int(msg.Type),
		Value:     value,
		PeerUdid:  msg.PeerUdid,
		AccountId: msg.AccountId,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(err, "编码信封失败！")
	}
	return data, nil
}

// Decode 解码信封JSON为消息，任意字段缺失或越界都整条拒绝
func Decode(data []byte) (*RelationShipChangeMsg, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "解码信封失败！")
	}
	if raw.Type == nil {
		return nil, errors.New("信封缺少TYPE字段")
	}
	if raw.Value == nil {
		return nil, errors.New("信封缺少VALUE字段")
	}
	if raw.PeerUdid == nil {
		return nil, errors.New("信封缺少PEER_UDID字段")
	}
	if *raw.Type < 0 || *raw.Type > int(AppUninstall) {
		return nil, errors.Errorf("未知的消息类型: %d", *raw.Type)
	}
	payload := make([]byte, len(raw.Value))
	for i, v := range raw.Value {
		if v < 0 || v > 0xFF {
			return nil, errors.Errorf("载荷元素越界: %d", v)
		}
		payload[i] = byte(v)
	}
	msg, err := DecodePayload(MsgType(*raw.Type), payload)
	if err != nil {
		return nil, err
	}
	msg.PeerUdid = *raw.PeerUdid
	if msg.Type == AccountLogout && raw.AccountId != "" {
		// 信封里带的是完整账号标识，覆盖载荷里的6字节截断值
		msg.AccountId = raw.AccountId
	}
	return msg, nil
}
