package dmdb_test

import (
	"testing"

	"github.com/DeviceTrust/DeviceTrust/pkg/dmdb"
	"github.com/stretchr/testify/assert"
)

func TestAddAndGetAclProfile(t *testing.T) {
	d := newTestDB(t)
	err := d.Open()
	assert.NoError(t, err)

	defer func() {
		err := d.Close()
		assert.NoError(t, err)
	}()

	p := dmdb.AccessControlProfile{
		Accesser: dmdb.Accesser{
			DeviceId: "localUdid",
			UserId:   100,
			TokenId:  42,
		},
		Accessee: dmdb.Accesser{
			DeviceId: "peerUdid",
			UserId:   100,
		},
		BindType:      dmdb.BindTypePointToPoint,
		BindLevel:     dmdb.BindLevelApp,
		Status:        dmdb.ProfileStatusActive,
		TrustDeviceId: "peerUdid",
	}

	saved, err := d.AddAclProfile(p)
	assert.NoError(t, err)
	assert.NotEqual(t, int64(0), saved.AccessControlId)

	got, err := d.GetAclProfileById(saved.AccessControlId)
	assert.NoError(t, err)
	assert.Equal(t, saved.TrustDeviceId, got.TrustDeviceId)
	assert.Equal(t, saved.Accesser.TokenId, got.Accesser.TokenId)
	assert.Equal(t, saved.BindLevel, got.BindLevel)
}

func TestGetAclProfilesByTrustDeviceId(t *testing.T) {
	d := newTestDB(t)
	err := d.Open()
	assert.NoError(t, err)

	defer func() {
		err := d.Close()
		assert.NoError(t, err)
	}()

	for i := 0; i < 3; i++ {
		_, err := d.AddAclProfile(dmdb.AccessControlProfile{
			TrustDeviceId: "peerA",
			BindType:      dmdb.BindTypePointToPoint,
			BindLevel:     dmdb.BindLevelUser,
		})
		assert.NoError(t, err)
	}
	_, err = d.AddAclProfile(dmdb.AccessControlProfile{
		TrustDeviceId: "peerB",
		BindType:      dmdb.BindTypeIdenticalAccount,
		BindLevel:     dmdb.BindLevelUser,
	})
	assert.NoError(t, err)

	profiles, err := d.GetAclProfiles("peerA")
	assert.NoError(t, err)
	assert.Equal(t, 3, len(profiles))

	profiles, err = d.GetAclProfiles("peerC")
	assert.NoError(t, err)
	assert.Equal(t, 0, len(profiles))
}

func TestDeleteAclProfileIsIdempotent(t *testing.T) {
	d := newTestDB(t)
	err := d.Open()
	assert.NoError(t, err)

	defer func() {
		err := d.Close()
		assert.NoError(t, err)
	}()

	saved, err := d.AddAclProfile(dmdb.AccessControlProfile{
		TrustDeviceId: "peerA",
		BindType:      dmdb.BindTypePointToPoint,
		BindLevel:     dmdb.BindLevelApp,
	})
	assert.NoError(t, err)

	err = d.DeleteAclProfile(saved.AccessControlId)
	assert.NoError(t, err)

	// 再删一次也成功
	err = d.DeleteAclProfile(saved.AccessControlId)
	assert.NoError(t, err)

	_, err = d.GetAclProfileById(saved.AccessControlId)
	assert.Equal(t, dmdb.ErrNotFound, err)

	profiles, err := d.GetAclProfiles("peerA")
	assert.NoError(t, err)
	assert.Equal(t, 0, len(profiles))
}

func TestGetAllAclProfilesFiltersLnn(t *testing.T) {
	d := newTestDB(t)
	err := d.Open()
	assert.NoError(t, err)

	defer func() {
		err := d.Close()
		assert.NoError(t, err)
	}()

	_, err = d.AddAclProfile(dmdb.AccessControlProfile{
		TrustDeviceId: "peerA",
		BindType:      dmdb.BindTypePointToPoint,
		BindLevel:     dmdb.BindLevelUser,
	})
	assert.NoError(t, err)

	_, err = d.AddAclProfile(dmdb.AccessControlProfile{
		TrustDeviceId: "peerA",
		BindType:      dmdb.BindTypePointToPoint,
		BindLevel:     dmdb.BindLevelUser,
		ExtraData:     `{"isLnnAcl":"true"}`,
	})
	assert.NoError(t, err)

	all, err := d.GetAllAclIncludeLnn()
	assert.NoError(t, err)
	assert.Equal(t, 2, len(all))

	nonLnn, err := d.GetAllAclProfiles()
	assert.NoError(t, err)
	assert.Equal(t, 1, len(nonLnn))
	assert.False(t, nonLnn[0].IsLnnAcl())
}

func TestUpdateAclProfileStatus(t *testing.T) {
	d := newTestDB(t)
	err := d.Open()
	assert.NoError(t, err)

	defer func() {
		err := d.Close()
		assert.NoError(t, err)
	}()

	saved, err := d.AddAclProfile(dmdb.AccessControlProfile{
		TrustDeviceId: "peerA",
		BindType:      dmdb.BindTypeAcrossAccount,
		BindLevel:     dmdb.BindLevelService,
		Status:        dmdb.ProfileStatusActive,
	})
	assert.NoError(t, err)

	saved.Status = dmdb.ProfileStatusInactive
	err = d.UpdateAclProfile(saved)
	assert.NoError(t, err)

	got, err := d.GetAclProfileById(saved.AccessControlId)
	assert.NoError(t, err)
	assert.Equal(t, dmdb.ProfileStatusInactive, got.Status)
}
