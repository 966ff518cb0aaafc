package dmdb

import (
	"path/filepath"

	"github.com/DeviceTrust/DeviceTrust/pkg/dmlog"
	"github.com/bwmarrin/snowflake"
	"github.com/cockroachdb/pebble"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// ErrNotFound ErrNotFound
var ErrNotFound = errors.New("dmdb: not found")

type DB interface {
	Open() error
	Close() error
	// 获取下一个主键
	NextPrimaryKey() int64
	// 信任记录
	AclDB
}

type AclDB interface {
	// GetAclProfiles 获取对端设备的全部信任记录（含LNN记录）
	GetAclProfiles(trustDeviceId string) ([]AccessControlProfile, error)

	// GetAllAclProfiles 获取全部非LNN信任记录
	GetAllAclProfiles() ([]AccessControlProfile, error)

	// GetAllAclIncludeLnn 获取全部信任记录，包括LNN记录
	GetAllAclIncludeLnn() ([]AccessControlProfile, error)

	// GetAclProfileById 按主键获取信任记录
	GetAclProfileById(accessControlId int64) (AccessControlProfile, error)

	// AddAclProfile 新增信任记录，主键为空时自动生成
	AddAclProfile(p AccessControlProfile) (AccessControlProfile, error)

	// UpdateAclProfile 更新信任记录
	UpdateAclProfile(p AccessControlProfile) error

	// DeleteAclProfile 按主键删除信任记录，记录不存在视为成功
	DeleteAclProfile(accessControlId int64) error
}

// NewTrustDB NewTrustDB
func NewTrustDB(opts *Options) DB {

	node, err := snowflake.NewNode(opts.NodeId % 1024)
	if err != nil {
		dmlog.Panic("dmdb: create snowflake node failed")
	}
	cache, _ := lru.New[int64, AccessControlProfile](opts.CacheSize)
	return &trustDB{
		opts:   opts,
		idNode: node,
		cache:  cache,
		Log:    dmlog.NewDMLog("trustDB"),
	}
}

type trustDB struct {
	opts   *Options
	db     *pebble.DB
	idNode *snowflake.Node
	cache  *lru.Cache[int64, AccessControlProfile]
	dmlog.Log
}

func (t *trustDB) Open() error {
	db, err := pebble.Open(filepath.Join(t.opts.DataDir, "trustdb"), &pebble.Options{
		MemTableSize: t.opts.MemTableSize,
	})
	if err != nil {
		return err
	}
	t.db = db
	return nil
}

func (t *trustDB) Close() error {
	if t.db == nil {
		return nil
	}
	return t.db.Close()
}

func (t *trustDB) NextPrimaryKey() int64 {
	return t.idNode.Generate().Int64()
}
