package model

import "time"

// LocationPoint はユーザー1人分の位置情報1点を表す。
// 作成後は不変であり、更新されることはない。削除はユーザー単位の
// 一括削除（履歴消去）でのみ行われる。
type LocationPoint struct {
	ID        string
	Username  string
	Latitude  float64
	Longitude float64
	LoggedAt  time.Time
}
