// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// HashedPasswordはAPIレスポンスに含めてはならない。
type User struct {
	ID             string
	Username       string
	HashedPassword string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Identity は検証済みクレデンシャルから得られた認証主体を表す。
// トークンの埋め込みクレームをそのまま保持するクレーム（記録ではない）であり、
// リクエストコンテキストに付与された後は不変として扱う。
type Identity struct {
	ID       string
	Username string
}
