package dmutil

import "time"

// CurrentBroadcastSlot 取本地时间秒数的10秒槽位，范围1-10
// 0余数映射为10，同一槽位内的同一逻辑事件会得到相同的广播标签
func CurrentBroadcastSlot() uint8 {
	sec := time.Now().Second() % 10
	if sec == 0 {
		return 10
	}
	return uint8(sec)
}

func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func IntToBool(b int) bool {
	return b == 1
}
