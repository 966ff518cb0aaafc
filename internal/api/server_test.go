package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DeviceTrust/DeviceTrust/internal/acl"
	"github.com/DeviceTrust/DeviceTrust/internal/broadcast"
	"github.com/DeviceTrust/DeviceTrust/internal/options"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmdb"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmproto"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmutil"
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

func newTestServer(t testing.TB) (*Server, dmdb.DB, *memTransport) {
	opts := options.NewOptions()
	opts.RootDir = t.TempDir()
	opts.LocalUdid = localUdid

	d := dmdb.NewTrustDB(dmdb.NewOptions(dmdb.WithDir(opts.DataDir())))
	err := d.Open()
	assert.NoError(t, err)
	t.Cleanup(func() {
		_ = d.Close()
	})

	engine := acl.NewEngine(d)

	dedup := broadcast.NewDedup(opts.Dedup.Expire, opts.TimingWheelTick, opts.TimingWheelSize)
	dedup.Start()
	t.Cleanup(dedup.Stop)

	transport := newMemTransport()
	sender := broadcast.NewSender(opts.LocalUdid, transport)
	receiver, err := broadcast.NewReceiver(opts.LocalUdid, engine, dedup, opts.Receiver.PoolSize)
	assert.NoError(t, err)
	t.Cleanup(receiver.Stop)

	return New(opts, engine, sender, receiver, dedup), d, transport
}

func addP2PUserProfile(t testing.TB, d dmdb.DB) dmdb.AccessControlProfile {
	p, err := d.AddAclProfile(dmdb.AccessControlProfile{
		Accesser: dmdb.Accesser{
			DeviceId: localUdid,
			UserId:   100,
		},
		Accessee: dmdb.Accesser{
			DeviceId: peerUdid,
			UserId:   100,
		},
		BindType:      dmdb.BindTypePointToPoint,
		BindLevel:     dmdb.BindLevelUser,
		Status:        dmdb.ProfileStatusActive,
		TrustDeviceId: peerUdid,
	})
	assert.NoError(t, err)
	return p
}

func postJSON(s *Server, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewReader([]byte(dmutil.ToJson(body))))
	s.ServeHTTP(w, req)
	return w
}

func TestUnbindDevice(t *testing.T) {
	s, d, transport := newTestServer(t)
	addP2PUserProfile(t, d)

	w := postJSON(s, "/unbind/device", map[string]interface{}{
		"remoteUdid": peerUdid,
		"userId":     100,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// 本机已拆
	profiles, err := d.GetAclProfiles(peerUdid)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(profiles))

	// 已广播给对端
	assert.Equal(t, 1, len(transport.sent[peerUdid]))
	msg, err := dmproto.Decode(transport.sent[peerUdid][0])
	assert.NoError(t, err)
	assert.Equal(t, dmproto.DeviceUnbind, msg.Type)
	assert.Equal(t, localUdid, msg.PeerUdid)
}

func TestUnbindDeviceBadBody(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/unbind/device", bytes.NewReader([]byte("not json")))
	s.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnbindApp(t *testing.T) {
	s, d, transport := newTestServer(t)
	_, err := d.AddAclProfile(dmdb.AccessControlProfile{
		Accesser: dmdb.Accesser{
			DeviceId:   localUdid,
			UserId:     100,
			TokenId:    42,
			BundleName: "com.x",
		},
		Accessee: dmdb.Accesser{
			DeviceId:   peerUdid,
			UserId:     100,
			TokenId:    43,
			BundleName: "com.x",
		},
		BindType:      dmdb.BindTypePointToPoint,
		BindLevel:     dmdb.BindLevelApp,
		Status:        dmdb.ProfileStatusActive,
		TrustDeviceId: peerUdid,
	})
	assert.NoError(t, err)

	w := postJSON(s, "/unbind/app", map[string]interface{}{
		"remoteUdid":  peerUdid,
		"userId":      100,
		"tokenId":     42,
		"peerTokenId": 43,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	profiles, err := d.GetAclProfiles(peerUdid)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(profiles))

	msg, err := dmproto.Decode(transport.sent[peerUdid][0])
	assert.NoError(t, err)
	assert.Equal(t, dmproto.AppUnbind, msg.Type)
	assert.Equal(t, uint64(42), msg.TokenId)
	assert.Equal(t, uint64(43), msg.PeerTokenId)
}

func TestGetAclList(t *testing.T) {
	s, d, _ := newTestServer(t)
	addP2PUserProfile(t, d)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/acl?userId=100", nil)
	s.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	resultMap, err := dmutil.JsonToMap(w.Body.String())
	assert.NoError(t, err)
	assert.NotNil(t, resultMap["data"])
}

func TestUserRemoved(t *testing.T) {
	s, d, transport := newTestServer(t)
	addP2PUserProfile(t, d)

	w := postJSON(s, "/user/removed", map[string]interface{}{
		"userId": 100,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	profiles, err := d.GetAclProfiles(peerUdid)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(profiles))

	// 受影响的对端收到DEL_USER
	assert.Equal(t, 1, len(transport.sent[peerUdid]))
	msg, err := dmproto.Decode(transport.sent[peerUdid][0])
	assert.NoError(t, err)
	assert.Equal(t, dmproto.DelUser, msg.Type)
}

func TestBroadcastReceive(t *testing.T) {
	s, d, _ := newTestServer(t)
	addP2PUserProfile(t, d)

	data, err := dmproto.Encode(&dmproto.RelationShipChangeMsg{
		Type:        dmproto.DeviceUnbind,
		UserId:      100,
		PeerUdid:    peerUdid,
		BroadCastId: 5,
	})
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/broadcast/receive", bytes.NewReader(data))
	s.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	profiles, err := d.GetAclProfiles(peerUdid)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(profiles))
}

func TestVarz(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.uptime = time.Now()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/varz", nil)
	s.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	resultMap, err := dmutil.JsonToMap(w.Body.String())
	assert.NoError(t, err)
	assert.Equal(t, localUdid, resultMap["udid"])
}
