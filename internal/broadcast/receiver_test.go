package broadcast

import (
	"testing"
	"time"

	"github.com/DeviceTrust/DeviceTrust/internal/acl"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmdb"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmproto"
	"github.com/stretchr/testify/assert"
)

const (
	localUdid = "udid-A"
	peerUdid  = "udid-B"
)

type memTransport struct {
	sent map[string][][]byte
}

func newMemTransport() *memTransport {
	return &memTransport{sent: make(map[string][][]byte)}
}

func (m *memTransport) SendBroadcast(targetUdid string, payload []byte) error {
	m.sent[targetUdid] = append(m.sent[targetUdid], payload)
	return nil
}

func newTestReceiver(t testing.TB) (*Receiver, dmdb.DB) {
	d := dmdb.NewTrustDB(dmdb.NewOptions(dmdb.WithDir(t.TempDir())))
	err := d.Open()
	assert.NoError(t, err)
	t.Cleanup(func() {
		_ = d.Close()
	})

	dedup := newTestDedup(time.Second * 5)
	t.Cleanup(dedup.Stop)

	r, err := NewReceiver(localUdid, acl.NewEngine(d), dedup, 4)
	assert.NoError(t, err)
	t.Cleanup(r.Stop)
	return r, d
}

func addProfile(t testing.TB, d dmdb.DB, p dmdb.AccessControlProfile) dmdb.AccessControlProfile {
	saved, err := d.AddAclProfile(p)
	assert.NoError(t, err)
	return saved
}

func p2pAppProfile(localTokenId int64, peerTokenId int64) dmdb.AccessControlProfile {
	return dmdb.AccessControlProfile{
		Accesser: dmdb.Accesser{
			DeviceId:   localUdid,
			UserId:     100,
			TokenId:    localTokenId,
			BundleName: "com.x",
		},
		Accessee: dmdb.Accesser{
			DeviceId:   peerUdid,
			UserId:     100,
			TokenId:    peerTokenId,
			BundleName: "com.x",
		},
		BindType:      dmdb.BindTypePointToPoint,
		BindLevel:     dmdb.BindLevelApp,
		Status:        dmdb.ProfileStatusActive,
		TrustDeviceId: peerUdid,
	}
}

func TestReceiverMirrorsAppUnbind(t *testing.T) {
	r, d := newTestReceiver(t)

	addProfile(t, d, p2pAppProfile(42, 43))

	// 对端(B)的应用解绑广播：B侧token是43(消息TokenId)，本机侧是42(消息PeerTokenId)
	transport := newMemTransport()
	sender := NewSender(peerUdid, transport)
	msg := &dmproto.RelationShipChangeMsg{
		Type:        dmproto.AppUnbind,
		UserId:      100,
		TokenId:     43,
		PeerTokenId: 42,
		BroadCastId: 3,
	}
	err := sender.SyncTrustRelationShip(msg, []string{localUdid})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(transport.sent[localUdid]))

	r.Handle(transport.sent[localUdid][0])

	profiles, err := d.GetAclProfiles(peerUdid)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(profiles))
	assert.Equal(t, int64(1), r.ProcessedCount())
}

func TestReceiverSuppressesRedelivery(t *testing.T) {
	r, d := newTestReceiver(t)

	addProfile(t, d, p2pAppProfile(42, 43))

	msg := &dmproto.RelationShipChangeMsg{
		Type:        dmproto.DeviceUnbind,
		UserId:      100,
		PeerUdid:    peerUdid,
		BroadCastId: 6,
	}
	data, err := dmproto.Encode(msg)
	assert.NoError(t, err)

	// 同一广播经两条链路到达，只应用一次
	r.Handle(data)
	r.Handle(data)
	assert.Equal(t, int64(1), r.ProcessedCount())
}

func TestReceiverDiscardsBrokenPayload(t *testing.T) {
	r, _ := newTestReceiver(t)

	r.Handle([]byte(`{"TYPE":1,"VALUE":[44,1,7]}`)) // 缺PEER_UDID
	r.Handle([]byte(`not json`))
	assert.Equal(t, int64(0), r.ProcessedCount())
}

func TestReceiverAppliesAccountLogout(t *testing.T) {
	r, d := newTestReceiver(t)

	p := p2pAppProfile(0, 0)
	p.BindType = dmdb.BindTypeIdenticalAccount
	p.BindLevel = dmdb.BindLevelUser
	p.Accesser.AccountId = "acct-1"
	p.Accessee.AccountId = "acct-1"
	addProfile(t, d, p)

	msg := &dmproto.RelationShipChangeMsg{
		Type:        dmproto.AccountLogout,
		UserId:      100,
		AccountId:   "acct-1",
		PeerUdid:    peerUdid,
		BroadCastId: 2,
	}
	data, err := dmproto.Encode(msg)
	assert.NoError(t, err)
	r.Handle(data)

	profiles, err := d.GetAclProfiles(peerUdid)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(profiles))
}

func TestReceiverAppliesSyncUserId(t *testing.T) {
	r, d := newTestReceiver(t)

	p := p2pAppProfile(0, 0)
	p.BindLevel = dmdb.BindLevelUser
	addProfile(t, d, p)

	msg := &dmproto.RelationShipChangeMsg{
		Type:     dmproto.SyncUserId,
		PeerUdid: peerUdid,
		UserIdInfos: []dmproto.UserIdInfo{
			{UserId: 100, IsForeground: false},
		},
		BroadCastId: 4,
	}
	data, err := dmproto.Encode(msg)
	assert.NoError(t, err)
	r.Handle(data)

	profiles, err := d.GetAclProfiles(peerUdid)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(profiles))
	assert.Equal(t, dmdb.ProfileStatusInactive, profiles[0].Status)
}

func TestSenderFillsBroadcastId(t *testing.T) {
	transport := newMemTransport()
	sender := NewSender(localUdid, transport)

	msg := &dmproto.RelationShipChangeMsg{
		Type:   dmproto.DeviceUnbind,
		UserId: 100,
	}
	err := sender.SyncTrustRelationShip(msg, []string{peerUdid, localUdid, ""})
	assert.NoError(t, err)

	// 本机和空udid被跳过
	assert.Equal(t, 1, len(transport.sent[peerUdid]))
	assert.Equal(t, 1, len(transport.sent))

	decoded, err := dmproto.Decode(transport.sent[peerUdid][0])
	assert.NoError(t, err)
	// 对端视角里发送方是peer
	assert.Equal(t, localUdid, decoded.PeerUdid)
	// 槽位标签范围1-10
	assert.GreaterOrEqual(t, decoded.BroadCastId, uint8(1))
	assert.LessOrEqual(t, decoded.BroadCastId, uint8(10))
}
