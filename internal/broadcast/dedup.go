package broadcast

import (
	"sync"
	"time"

	"github.com/DeviceTrust/DeviceTrust/pkg/dmlog"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmproto"
	"github.com/RussellLuo/timingwheel"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Dedup 广播去重缓存：同一逻辑事件可能经多条物理链路重复送达，
// 按消息的语义键记住最近一次见到的广播标签，短暂过期后重新放行
type Dedup struct {
	mu          sync.Mutex
	seen        map[string]*dedupEntry
	timingWheel *timingwheel.TimingWheel
	expire      time.Duration
	suppressed  atomic.Int64
	dmlog.Log
}

type dedupEntry struct {
	broadCastId uint8
	timer       *timingwheel.Timer
}

func NewDedup(expire time.Duration, tick time.Duration, size int64) *Dedup {
	return &Dedup{
		seen:        make(map[string]*dedupEntry),
		timingWheel: timingwheel.NewTimingWheel(tick, size),
		expire:      expire,
		Log:         dmlog.NewDMLog("broadcastDedup"),
	}
}

func (d *Dedup) Start() {
	d.timingWheel.Start()
}

func (d *Dedup) Stop() {
	d.timingWheel.Stop()
}

// IsNewBroadCastId 判断消息是否是新事件
// broadCastId为0是发送端读不到时钟时的免去重逃生值，一律视为新；
// 键不存在或者标签变了视为新并重置过期；标签相同视为重复送达，压掉
func (d *Dedup) IsNewBroadCastId(msg *dmproto.RelationShipChangeMsg) bool {
	if msg.BroadCastId == 0 {
		return true
	}
	key := msg.ToMapKey()
	broadCastId := msg.BroadCastId

	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.seen[key]
	if ok && entry.broadCastId == broadCastId {
		d.suppressed.Inc()
		d.Debug("duplicate broadcast suppressed", zap.String("msg", msg.String()))
		return false
	}
	if ok {
		entry.timer.Stop()
	}
	timer := d.timingWheel.AfterFunc(d.expire, func() {
		d.mu.Lock()
		if cur, exist := d.seen[key]; exist && cur.broadCastId == broadCastId {
			delete(d.seen, key)
		}
		d.mu.Unlock()
	})
	d.seen[key] = &dedupEntry{broadCastId: broadCastId, timer: timer}
	return true
}

// SuppressedCount 被压掉的重复广播数
func (d *Dedup) SuppressedCount() int64 {
	return d.suppressed.Load()
}

// Len 当前缓存的去重键数量
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
