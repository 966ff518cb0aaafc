package options

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type Mode string

const (
	// debug 模式
	DebugMode Mode = "debug"
	// 正式模式
	ReleaseMode Mode = "release"
)

type Options struct {
	vp       *viper.Viper // 内部配置对象
	Mode     Mode
	RootDir  string // 根目录
	HTTPAddr string // 管理接口监听地址

	// 本机身份
	LocalUdid   string // 本机UDID，未配置时生成一个
	LocalUserId int32  // 本机前台用户

	Logger struct {
		Dir     string
		Level   zapcore.Level
		LineNum bool
	}

	Db struct {
		NodeId    int64
		CacheSize int
	}

	// Dedup 广播去重配置
	Dedup struct {
		Expire time.Duration // 去重键的过期时间
	}

	// Receiver 接收管道配置
	Receiver struct {
		PoolSize int // 入站广播处理协程池大小
	}

	TimingWheelTick time.Duration // 时间轮轮询间隔
	TimingWheelSize int64         // 时间轮大小
}

func NewOptions() *Options {
	opts := &Options{
		Mode:            DebugMode,
		RootDir:         "./devicetrustdata",
		HTTPAddr:        "0.0.0.0:5320",
		TimingWheelTick: time.Millisecond * 10,
		TimingWheelSize: 100,
	}
	opts.Dedup.Expire = time.Second * 5
	opts.Receiver.PoolSize = 64
	opts.Db.NodeId = 1
	opts.Db.CacheSize = 2048
	return opts
}

func (o *Options) ConfigureWithViper(vp *viper.Viper) {
	o.vp = vp

	modeStr := o.getString("mode", string(o.Mode))
	if strings.TrimSpace(modeStr) == "" {
		o.Mode = DebugMode
	} else {
		o.Mode = Mode(modeStr)
	}

	o.RootDir = o.getString("rootDir", o.RootDir)
	o.HTTPAddr = o.getString("httpAddr", o.HTTPAddr)

	o.LocalUdid = o.getString("localUdid", o.LocalUdid)
	if strings.TrimSpace(o.LocalUdid) == "" {
		o.LocalUdid = uuid.New().String()
	}
	o.LocalUserId = int32(o.getInt("localUserId", int(o.LocalUserId)))

	o.Logger.Dir = o.getString("logger.dir", o.Logger.Dir)
	if strings.TrimSpace(o.Logger.Dir) == "" {
		o.Logger.Dir = filepath.Join(o.RootDir, "logs")
	}
	if o.Mode == DebugMode {
		o.Logger.Level = zapcore.DebugLevel
	} else {
		o.Logger.Level = zapcore.InfoLevel
	}
	level := o.getInt("logger.level", 0)
	if level != 0 {
		o.Logger.Level = zapcore.Level(level)
	}
	o.Logger.LineNum = o.getBool("logger.lineNum", o.Logger.LineNum)

	o.Db.NodeId = o.getInt64("db.nodeId", o.Db.NodeId)
	o.Db.CacheSize = o.getInt("db.cacheSize", o.Db.CacheSize)

	o.Dedup.Expire = o.getDuration("dedup.expire", o.Dedup.Expire)
	o.Receiver.PoolSize = o.getInt("receiver.poolSize", o.Receiver.PoolSize)
}

// DataDir 存储目录
func (o *Options) DataDir() string {
	return filepath.Join(o.RootDir, "db")
}

func (o *Options) getString(key string, defaultValue string) string {
	v := o.vp.GetString(key)
	if v == "" {
		return defaultValue
	}
	return v
}

func (o *Options) getInt(key string, defaultValue int) int {
	v := o.vp.GetInt(key)
	if v == 0 {
		return defaultValue
	}
	return v
}

func (o *Options) getInt64(key string, defaultValue int64) int64 {
	v := o.vp.GetInt64(key)
	if v == 0 {
		return defaultValue
	}
	return v
}

func (o *Options) getBool(key string, defaultValue bool) bool {
	objV := o.vp.Get(key)
	if objV == nil {
		return defaultValue
	}
	return cast.ToBool(objV)
}

func (o *Options) getDuration(key string, defaultValue time.Duration) time.Duration {
	v := o.vp.GetDuration(key)
	if v == 0 {
		return defaultValue
	}
	return v
}
