package server

import (
	"testing"
	"time"

	"github.com/DeviceTrust/DeviceTrust/internal/options"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmproto"
	"github.com/stretchr/testify/assert"
)

type memTransport struct {
	sent map[string][][]byte
}

func (m *memTransport) SendBroadcast(targetUdid string, payload []byte) error {
	m.sent[targetUdid] = append(m.sent[targetUdid], payload)
	return nil
}

func TestServerStartStop(t *testing.T) {
	opts := options.NewOptions()
	opts.RootDir = t.TempDir()
	opts.LocalUdid = "udid-A"
	opts.HTTPAddr = "127.0.0.1:0"

	transport := &memTransport{sent: make(map[string][][]byte)}
	s := NewWithTransport(opts, transport)

	err := s.Start()
	assert.NoError(t, err)

	// 广播链路通
	err = s.sender.SyncTrustRelationShip(&dmproto.RelationShipChangeMsg{
		Type:   dmproto.DeviceUnbind,
		UserId: 100,
	}, []string{"udid-B"})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(transport.sent["udid-B"]))

	// 接收链路通
	data, err := dmproto.Encode(&dmproto.RelationShipChangeMsg{
		Type:        dmproto.DeviceUnbind,
		UserId:      100,
		PeerUdid:    "udid-B",
		BroadCastId: 3,
	})
	assert.NoError(t, err)
	s.receiver.OnBroadcast(data)

	assert.Eventually(t, func() bool {
		return s.receiver.ProcessedCount() == 1
	}, time.Second, time.Millisecond*10)

	err = s.Stop()
	assert.NoError(t, err)
}
