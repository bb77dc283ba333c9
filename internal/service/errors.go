package service

import "errors"

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed webhook event")
	ErrSessionNoProduct = errors.New("checkout session has no product metadata")

	ErrDownloadNotFound = errors.New("download token not found")
	ErrDownloadUsed     = errors.New("download token already used")
	ErrDownloadExpired  = errors.New("download token expired")
	ErrFileNotFound     = errors.New("archive not found")
	ErrInvalidProductID = errors.New("invalid product id")
)
