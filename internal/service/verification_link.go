package service

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"auth-admin/internal/domain"
	"auth-admin/internal/security"
)

// LinkBuilder arma los links firmados que se envian por correo.
type LinkBuilder struct {
	signer    security.Signer
	hasher    security.Hasher
	appURL    string
	verifyTTL time.Duration
	resetTTL  time.Duration
}

func NewLinkBuilder(signer security.Signer, hasher security.Hasher, appURL string, verifyTTL, resetTTL time.Duration) *LinkBuilder {
	if verifyTTL <= 0 {
		verifyTTL = 60 * time.Minute
	}
	if resetTTL <= 0 {
		resetTTL = 60 * time.Minute
	}
	return &LinkBuilder{
		signer:    signer,
		hasher:    hasher,
		appURL:    strings.TrimRight(appURL, "/"),
		verifyTTL: verifyTTL,
		resetTTL:  resetTTL,
	}
}

// Credentials firma un link de verificacion para el email actual del usuario.
func (b *LinkBuilder) Credentials(user domain.User, now time.Time) domain.VerificationCredentials {
	expires := now.Add(b.verifyTTL).Unix()
	emailHash := b.hasher.Digest(normalizeEmail(user.Email))
	return domain.VerificationCredentials{
		UserID:    user.ID,
		EmailHash: emailHash,
		ExpiresAt: expires,
		Signature: signVerification(b.signer, user.ID, emailHash, expires),
	}
}

// VerificationURL devuelve el link web de verificacion y su vencimiento.
func (b *LinkBuilder) VerificationURL(user domain.User, now time.Time) (string, time.Time) {
	creds := b.Credentials(user, now)
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(creds.ExpiresAt, 10))
	q.Set("signature", creds.Signature)
	link := b.appURL + "/email/verify/" + strconv.FormatInt(creds.UserID, 10) + "/" + creds.EmailHash + "?" + q.Encode()
	return link, time.Unix(creds.ExpiresAt, 0).UTC()
}

// ResetURL devuelve el link del formulario de reseteo y su vencimiento.
func (b *LinkBuilder) ResetURL(token, email string, now time.Time) (string, time.Time) {
	q := url.Values{}
	q.Set("email", email)
	link := b.appURL + "/password/reset/" + url.PathEscape(token) + "?" + q.Encode()
	return link, now.Add(b.resetTTL).UTC()
}

func signVerification(signer security.Signer, userID int64, emailHash string, expires int64) string {
	return signer.Sign(security.LinkPayload(security.VerificationRoute, expires, userID, emailHash))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
