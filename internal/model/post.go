// Package model はドメインモデルを定義する。
package model

import "time"

// Owner は投稿の所有者を表す。
// 作成時の認証済みIdentityから非正規化してコピーされ、以後変更されない。
// 所有権の比較はIDフィールドのみで行う（usernameは表示用）。
type Owner struct {
	ID       string
	Username string
}

// Post はユーザーが所有するコンテンツ（投稿）を表す。
type Post struct {
	ID          string
	Title       string
	Body        string
	Tags        []string
	PublishedAt time.Time
	Owner       Owner
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PostPatch は投稿の部分更新を表す。
// nilフィールドは変更しない。
type PostPatch struct {
	Title *string
	Body  *string
	Tags  *[]string
}

// PostFilter は投稿一覧の絞り込み条件を表す。
// 空文字列のフィールドは条件を課さない。両方指定された場合はAND条件になる。
type PostFilter struct {
	OwnerUsername string
	Tag           string
}
