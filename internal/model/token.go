package model

import "time"

// DownloadToken is a single-use, time-limited credential exchanged for one
// product archive.
type DownloadToken struct {
	Token     string    `json:"token"`
	ProductID string    `json:"productId"`
	Email     string    `json:"email"`
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
	Used      bool      `json:"used"`
	Retries   int       `json:"retries"` // transfers released after a failed stream
}

// IsExpired reports whether the token can no longer be exchanged at now.
func (t *DownloadToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// ArchiveName is the file name served for the token's product.
func (t *DownloadToken) ArchiveName() string {
	return t.ProductID + ".zip"
}
