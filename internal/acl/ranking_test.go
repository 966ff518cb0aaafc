package acl

import (
	"testing"

	"github.com/DeviceTrust/DeviceTrust/pkg/dmdb"
	"github.com/stretchr/testify/assert"
)

func TestBindPriorityTable(t *testing.T) {

	// 同账号在任意粒度下都是5
	assert.Equal(t, uint32(5), BindPriority(dmdb.BindTypeIdenticalAccount, dmdb.BindLevelUser))
	assert.Equal(t, uint32(5), BindPriority(dmdb.BindTypeIdenticalAccount, dmdb.BindLevelService))
	assert.Equal(t, uint32(5), BindPriority(dmdb.BindTypeIdenticalAccount, dmdb.BindLevelApp))

	assert.Equal(t, uint32(3), BindPriority(dmdb.BindTypePointToPoint, dmdb.BindLevelUser))
	assert.Equal(t, uint32(6), BindPriority(dmdb.BindTypePointToPoint, dmdb.BindLevelService))
	assert.Equal(t, uint32(1), BindPriority(dmdb.BindTypePointToPoint, dmdb.BindLevelApp))

	assert.Equal(t, uint32(4), BindPriority(dmdb.BindTypeAcrossAccount, dmdb.BindLevelUser))
	assert.Equal(t, uint32(7), BindPriority(dmdb.BindTypeAcrossAccount, dmdb.BindLevelService))
	assert.Equal(t, uint32(2), BindPriority(dmdb.BindTypeAcrossAccount, dmdb.BindLevelApp))

	assert.Equal(t, uint32(0), BindPriority(dmdb.BindType(0), dmdb.BindLevelUser))
}

func TestAuthFormOf(t *testing.T) {
	assert.Equal(t, AuthFormIdenticalAccount, AuthFormOf(dmdb.BindTypeIdenticalAccount))
	assert.Equal(t, AuthFormPeerToPeer, AuthFormOf(dmdb.BindTypePointToPoint))
	assert.Equal(t, AuthFormAcrossAccount, AuthFormOf(dmdb.BindTypeAcrossAccount))
	assert.Equal(t, AuthFormInvalid, AuthFormOf(dmdb.BindType(0)))
}
