package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DeviceTrust/DeviceTrust/internal/acl"
	"github.com/DeviceTrust/DeviceTrust/internal/api"
	"github.com/DeviceTrust/DeviceTrust/internal/broadcast"
	"github.com/DeviceTrust/DeviceTrust/internal/options"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmdb"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmlog"
	"github.com/DeviceTrust/DeviceTrust/version"
	"github.com/RussellLuo/timingwheel"
	"github.com/judwhite/go-svc"
	"go.uber.org/zap"
)

// Server 组装信任引擎、广播管道和管理接口，持有全部组件的生命周期
type Server struct {
	opts        *options.Options
	db          dmdb.DB
	engine      *acl.Engine
	dedup       *broadcast.Dedup
	sender      *broadcast.Sender
	receiver    *broadcast.Receiver
	apiServer   *api.Server
	timingWheel *timingwheel.TimingWheel
	statsTimer  *timingwheel.Timer
	start       time.Time
	dmlog.Log
}

func New(opts *options.Options) *Server {
	return NewWithTransport(opts, newLogTransport())
}

// NewWithTransport 由集成方提供真实广播传输
func NewWithTransport(opts *options.Options, transport broadcast.Transport) *Server {
	s := &Server{
		opts:        opts,
		timingWheel: timingwheel.NewTimingWheel(opts.TimingWheelTick, opts.TimingWheelSize),
		Log:         dmlog.NewDMLog("Server"),
	}
	s.db = dmdb.NewTrustDB(dmdb.NewOptions(
		dmdb.WithDir(opts.DataDir()),
		dmdb.WithNodeId(opts.Db.NodeId),
		dmdb.WithCacheSize(opts.Db.CacheSize),
	))
	s.engine = acl.NewEngine(s.db)
	s.dedup = broadcast.NewDedup(opts.Dedup.Expire, opts.TimingWheelTick, opts.TimingWheelSize)
	s.sender = broadcast.NewSender(opts.LocalUdid, transport)
	receiver, err := broadcast.NewReceiver(opts.LocalUdid, s.engine, s.dedup, opts.Receiver.PoolSize)
	if err != nil {
		panic(err)
	}
	s.receiver = receiver
	s.apiServer = api.New(opts, s.engine, s.sender, s.receiver, s.dedup)
	return s
}

func (s *Server) Init(env svc.Environment) error {
	if env.IsWindowsService() {
		dir := filepath.Dir(os.Args[0])
		return os.Chdir(dir)
	}
	return nil
}

func (s *Server) Start() error {
	s.start = time.Now()
	s.Info("DeviceTrust is Starting...")
	s.Info(fmt.Sprintf("  Mode:  %s", s.opts.Mode))
	s.Info(fmt.Sprintf("  Version:  %s", version.Version))
	s.Info(fmt.Sprintf("  Git:  %s", version.CommitDate+"-"+version.Commit))
	s.Info(fmt.Sprintf("  Udid:  %s", s.opts.LocalUdid))
	s.Info(fmt.Sprintf("  RootDir:  %s", s.opts.RootDir))

	if err := s.db.Open(); err != nil {
		return err
	}
	s.timingWheel.Start()
	s.dedup.Start()
	s.apiServer.Start()

	// 周期输出管道水位
	s.statsTimer = s.Schedule(time.Minute, func() {
		s.Info("broadcast pipeline stats",
			zap.Int64("processed", s.receiver.ProcessedCount()),
			zap.Int64("suppressed", s.dedup.SuppressedCount()),
			zap.Int("pendingDedup", s.dedup.Len()))
	})
	return nil
}

func (s *Server) Stop() error {
	s.Info("Server is Stopping...")
	if s.statsTimer != nil {
		s.statsTimer.Stop()
	}
	s.apiServer.Stop()
	s.receiver.Stop()
	s.dedup.Stop()
	s.timingWheel.Stop()
	if err := s.db.Close(); err != nil {
		s.Warn("close db error", zap.Error(err))
	}
	s.Info("Server is exited")
	return nil
}

// Schedule 延迟任务
func (s *Server) Schedule(interval time.Duration, f func()) *timingwheel.Timer {
	return s.timingWheel.ScheduleFunc(&everyScheduler{
		Interval: interval,
	}, f)
}

type everyScheduler struct {
	Interval time.Duration
}

func (s *everyScheduler) Next(prev time.Time) time.Time {
	return prev.Add(s.Interval)
}
