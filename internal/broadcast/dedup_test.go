package broadcast

import (
	"testing"
	"time"

	"github.com/DeviceTrust/DeviceTrust/pkg/dmproto"
	"github.com/stretchr/testify/assert"
)

func newTestDedup(expire time.Duration) *Dedup {
	d := NewDedup(expire, time.Millisecond*10, 100)
	d.Start()
	return d
}

func TestIsNewBroadCastIdSuppressesDuplicate(t *testing.T) {
	d := newTestDedup(time.Second * 5)
	defer d.Stop()

	msg := &dmproto.RelationShipChangeMsg{
		Type:        dmproto.DeviceUnbind,
		UserId:      100,
		PeerUdid:    "udid-B",
		BroadCastId: 7,
	}

	assert.True(t, d.IsNewBroadCastId(msg))
	// 字节级相同的消息在窗口内是重复
	assert.False(t, d.IsNewBroadCastId(msg))
	assert.Equal(t, int64(1), d.SuppressedCount())
}

func TestIsNewBroadCastIdDifferentIdIsNew(t *testing.T) {
	d := newTestDedup(time.Second * 5)
	defer d.Stop()

	msg := &dmproto.RelationShipChangeMsg{
		Type:        dmproto.DeviceUnbind,
		UserId:      100,
		PeerUdid:    "udid-B",
		BroadCastId: 7,
	}
	assert.True(t, d.IsNewBroadCastId(msg))

	// 标签变了说明是新一轮事件
	msg2 := *msg
	msg2.BroadCastId = 8
	assert.True(t, d.IsNewBroadCastId(&msg2))

	// 回到旧标签也算新（标签被替换过）
	assert.True(t, d.IsNewBroadCastId(msg))
}

func TestIsNewBroadCastIdZeroAlwaysNew(t *testing.T) {
	d := newTestDedup(time.Second * 5)
	defer d.Stop()

	// 0是发送端读不到时钟时的免去重逃生值
	msg := &dmproto.RelationShipChangeMsg{
		Type:        dmproto.DeviceUnbind,
		UserId:      100,
		PeerUdid:    "udid-B",
		BroadCastId: 0,
	}
	assert.True(t, d.IsNewBroadCastId(msg))
	assert.True(t, d.IsNewBroadCastId(msg))
	assert.Equal(t, 0, d.Len())
}

func TestIsNewBroadCastIdExpires(t *testing.T) {
	d := newTestDedup(time.Millisecond * 50)
	defer d.Stop()

	msg := &dmproto.RelationShipChangeMsg{
		Type:        dmproto.DeviceUnbind,
		UserId:      100,
		PeerUdid:    "udid-B",
		BroadCastId: 7,
	}
	assert.True(t, d.IsNewBroadCastId(msg))
	assert.False(t, d.IsNewBroadCastId(msg))

	// 过期后同一标签重新放行
	time.Sleep(time.Millisecond * 200)
	assert.Equal(t, 0, d.Len())
	assert.True(t, d.IsNewBroadCastId(msg))
}

func TestIsNewBroadCastIdDistinctEvents(t *testing.T) {
	d := newTestDedup(time.Second * 5)
	defer d.Stop()

	msg := &dmproto.RelationShipChangeMsg{
		Type:        dmproto.DeviceUnbind,
		UserId:      100,
		PeerUdid:    "udid-B",
		BroadCastId: 7,
	}
	assert.True(t, d.IsNewBroadCastId(msg))

	// 语义字段不同的消息互不影响
	other := *msg
	other.PeerUdid = "udid-C"
	assert.True(t, d.IsNewBroadCastId(&other))
	assert.Equal(t, 2, d.Len())
}
