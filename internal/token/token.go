// Package token は署名付きベアラークレデンシャルの発行と検証を提供する。
//
// クレデンシャルはHMAC-SHA256で署名されたJWTで、認証主体のIDとユーザー名を
// クレームとして埋め込む。署名と有効期限の検証に通ったトークンは信頼され、
// ストレージへの再照会は行わない。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/masaki/inkwell/internal/model"
)

// 検証失敗の種別。呼び出し側はerrors.Isで判別する。
var (
	// ErrMalformed はトークンとして解析できない文字列を表す。
	ErrMalformed = errors.New("token: malformed credential")
	// ErrExpired は有効期限切れのトークンを表す。
	ErrExpired = errors.New("token: credential expired")
	// ErrSignatureInvalid は署名検証に失敗したトークンを表す。
	ErrSignatureInvalid = errors.New("token: signature invalid")
)

// claims はトークンに埋め込むクレーム。
type claims struct {
	UserID   string `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issuer は検証済みユーザーに対してクレデンシャルを発行する。
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer はIssuerを生成する。ttlには発行するトークンの有効期間を指定する
// （デフォルト運用では7日間）。
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue はIdentityを埋め込んだ署名付きトークンを発行する。
func (i *Issuer) Issue(identity model.Identity) (string, error) {
	now := i.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:   identity.ID,
		Username: identity.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	})

	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verifier はベアラークレデンシャルを検証しIdentityを得る。
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier はVerifierを生成する。
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Verify はクレデンシャル文字列を検証し、埋め込まれたIdentityを返す。
// 失敗時はErrMalformed、ErrExpired、ErrSignatureInvalidのいずれかを返す。
// 成功したトークンのクレームはそのまま信頼する（ストレージ再照会なし）。
func (v *Verifier) Verify(credential string) (*model.Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(credential, &c,
		func(t *jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureInvalid
		default:
			return nil, ErrMalformed
		}
	}

	if c.UserID == "" {
		return nil, ErrMalformed
	}

	return &model.Identity{
		ID:       c.UserID,
		Username: c.Username,
	}, nil
}
