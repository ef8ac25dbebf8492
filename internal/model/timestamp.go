package model

import "time"

// NextUpdatedAt は前回の更新時刻より必ず後になる更新時刻を返す。
// 時計が進んでいない場合は1マイクロ秒進める。時刻はUTC・マイクロ秒精度に揃える。
func NextUpdatedAt(prev, now time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}
