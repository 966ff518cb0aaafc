package dmdb

import (
	"fmt"

	"github.com/DeviceTrust/DeviceTrust/pkg/dmutil"
)

// 键空间：
//   acl#{id:020d}                        -> 信任记录JSON
//   aclidx#{crc32(trustDeviceId):010d}#{id:020d} -> 空值，二级索引
const (
	aclKeyPrefix      = "acl#"
	aclIndexKeyPrefix = "aclidx#"
)

func newAclKey(accessControlId int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", aclKeyPrefix, accessControlId))
}

func newAclIndexKey(trustDeviceId string, accessControlId int64) []byte {
	return []byte(fmt.Sprintf("%s%010d#%020d", aclIndexKeyPrefix, dmutil.HashCrc32(trustDeviceId), accessControlId))
}

func newAclIndexPrefix(trustDeviceId string) []byte {
	return []byte(fmt.Sprintf("%s%010d#", aclIndexKeyPrefix, dmutil.HashCrc32(trustDeviceId)))
}

// prefixUpperBound 前缀扫描的上界：前缀最后一个字节加一
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		upper[i] = upper[i] + 1
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}
	return nil
}
