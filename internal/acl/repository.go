package acl

import (
	"github.com/DeviceTrust/DeviceTrust/pkg/dmdb"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmlog"
	"go.uber.org/zap"
)

// Repository 信任记录存储的类型化查询封装
// 存储层失败只记日志，对上表现为"没有记录"，不在这里重试
type Repository struct {
	db dmdb.DB
	dmlog.Log
}

func NewRepository(db dmdb.DB) *Repository {
	return &Repository{
		db:  db,
		Log: dmlog.NewDMLog("aclRepository"),
	}
}

// ProfilesByTrustDeviceId 对端设备的全部记录，含LNN记录
func (r *Repository) ProfilesByTrustDeviceId(trustDeviceId string) []dmdb.AccessControlProfile {
	profiles, err := r.db.GetAclProfiles(trustDeviceId)
	if err != nil {
		r.Error("query acl profiles failed", zap.Error(err), zap.String("trustDeviceId", trustDeviceId))
		return nil
	}
	return profiles
}

// AllProfiles 全部非LNN记录
func (r *Repository) AllProfiles() []dmdb.AccessControlProfile {
	profiles, err := r.db.GetAllAclProfiles()
	if err != nil {
		r.Error("query all acl profiles failed", zap.Error(err))
		return nil
	}
	return profiles
}

// AllProfilesIncludeLnn 全部记录，含LNN记录
func (r *Repository) AllProfilesIncludeLnn() []dmdb.AccessControlProfile {
	profiles, err := r.db.GetAllAclIncludeLnn()
	if err != nil {
		r.Error("query all acl profiles failed", zap.Error(err))
		return nil
	}
	return profiles
}

func (r *Repository) Add(p dmdb.AccessControlProfile) (dmdb.AccessControlProfile, error) {
	saved, err := r.db.AddAclProfile(p)
	if err != nil {
		r.Error("add acl profile failed", zap.Error(err), zap.String("trustDeviceId", p.TrustDeviceId))
		return dmdb.EmptyAclProfile, err
	}
	return saved, nil
}

func (r *Repository) Update(p dmdb.AccessControlProfile) error {
	err := r.db.UpdateAclProfile(p)
	if err != nil {
		r.Error("update acl profile failed", zap.Error(err), zap.Int64("accessControlId", p.AccessControlId))
	}
	return err
}

// Delete 按主键删除，记录已不存在视为成功
func (r *Repository) Delete(accessControlId int64) error {
	err := r.db.DeleteAclProfile(accessControlId)
	if err != nil {
		r.Error("delete acl profile failed", zap.Error(err), zap.Int64("accessControlId", accessControlId))
	}
	return err
}
