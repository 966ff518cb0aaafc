package dmdb

import (
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func (t *trustDB) GetAclProfiles(trustDeviceId string) ([]AccessControlProfile, error) {
	prefix := newAclIndexPrefix(trustDeviceId)
	iter := t.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	defer iter.Close()

	var profiles []AccessControlProfile
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := parseAclIndexKey(iter.Key())
		if err != nil {
			return nil, err
		}
		profile, err := t.GetAclProfileById(id)
		if err != nil {
			if err == ErrNotFound {
				// 索引残留，跳过
				continue
			}
			return nil, err
		}
		// crc32哈希可能撞车，取出后再比对一次udid
		if profile.TrustDeviceId == trustDeviceId {
			profiles = append(profiles, profile)
		}
	}
	return profiles, nil
}

func (t *trustDB) GetAllAclProfiles() ([]AccessControlProfile, error) {
	all, err := t.GetAllAclIncludeLnn()
	if err != nil {
		return nil, err
	}
	profiles := make([]AccessControlProfile, 0, len(all))
	for _, p := range all {
		if p.IsLnnAcl() {
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (t *trustDB) GetAllAclIncludeLnn() ([]AccessControlProfile, error) {
	prefix := []byte(aclKeyPrefix)
	iter := t.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	defer iter.Close()

	var profiles []AccessControlProfile
	for iter.First(); iter.Valid(); iter.Next() {
		var profile AccessControlProfile
		if err := json.Unmarshal(iter.Value(), &profile); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func (t *trustDB) GetAclProfileById(accessControlId int64) (AccessControlProfile, error) {
	if profile, ok := t.cache.Get(accessControlId); ok {
		return profile, nil
	}
	value, closer, err := t.db.Get(newAclKey(accessControlId))
	if err != nil {
		if err == pebble.ErrNotFound {
			return EmptyAclProfile, ErrNotFound
		}
		return EmptyAclProfile, err
	}
	defer closer.Close()

	var profile AccessControlProfile
	if err := json.Unmarshal(value, &profile); err != nil {
		return EmptyAclProfile, err
	}
	t.cache.Add(accessControlId, profile)
	return profile, nil
}

func (t *trustDB) AddAclProfile(p AccessControlProfile) (AccessControlProfile, error) {
	if p.AccessControlId == 0 {
		p.AccessControlId = t.NextPrimaryKey()
	}
	if err := t.putAclProfile(p); err != nil {
		return EmptyAclProfile, err
	}
	return p, nil
}

func (t *trustDB) UpdateAclProfile(p AccessControlProfile) error {
	if p.AccessControlId == 0 {
		return ErrNotFound
	}
	// 对端udid变化时旧索引要先清掉
	old, err := t.GetAclProfileById(p.AccessControlId)
	if err != nil && err != ErrNotFound {
		return err
	}
	if err == nil && old.TrustDeviceId != p.TrustDeviceId {
		if err := t.db.Delete(newAclIndexKey(old.TrustDeviceId, old.AccessControlId), pebble.Sync); err != nil {
			return err
		}
	}
	return t.putAclProfile(p)
}

// DeleteAclProfile 删除即幂等：记录不存在直接返回成功
func (t *trustDB) DeleteAclProfile(accessControlId int64) error {
	profile, err := t.GetAclProfileById(accessControlId)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}
	batch := t.db.NewBatch()
	defer batch.Close()
	if err := batch.Delete(newAclKey(accessControlId), nil); err != nil {
		return err
	}
	if err := batch.Delete(newAclIndexKey(profile.TrustDeviceId, accessControlId), nil); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return err
	}
	t.cache.Remove(accessControlId)
	t.Debug("acl profile deleted", zap.Int64("accessControlId", accessControlId), zap.String("trustDeviceId", profile.TrustDeviceId))
	return nil
}

func (t *trustDB) putAclProfile(p AccessControlProfile) error {
	value, err := json.Marshal(p)
	if err != nil {
		return err
	}
	batch := t.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(newAclKey(p.AccessControlId), value, nil); err != nil {
		return err
	}
	if err := batch.Set(newAclIndexKey(p.TrustDeviceId, p.AccessControlId), nil, nil); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return err
	}
	t.cache.Remove(p.AccessControlId)
	return nil
}

// parseAclIndexKey 从二级索引键里取出主键
func parseAclIndexKey(key []byte) (int64, error) {
	// aclidx#{hash:010d}#{id:020d}
	if len(key) != len(aclIndexKeyPrefix)+10+1+20 {
		return 0, errors.Errorf("bad acl index key: %s", string(key))
	}
	idPart := key[len(aclIndexKeyPrefix)+10+1:]
	return strconv.ParseInt(string(idPart), 10, 64)
}
