package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"storefront-downloads/internal/dto"
	"storefront-downloads/internal/repository"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const releaseTimeout = 5 * time.Second

var productIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

type DownloadService interface {
	// Begin validates the token, claims it and opens the archive. The caller
	// must close Body and report the outcome with Complete or Abort.
	Begin(ctx context.Context, token string) (*dto.Download, error)
	Complete(ctx context.Context, download *dto.Download, written int64)
	Abort(ctx context.Context, download *dto.Download, cause error)
	StoreArchive(ctx context.Context, productID string, src io.Reader) error
}

type downloadServiceImpl struct {
	tokenRepo  repository.TokenRepository
	dir        string
	maxRetries int
	now        func() time.Time
}

func NewDownloadService(tokenRepo repository.TokenRepository, dir string, maxRetries int) DownloadService {
	return &downloadServiceImpl{
		tokenRepo:  tokenRepo,
		dir:        dir,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

func (s *downloadServiceImpl) Begin(ctx context.Context, token string) (*dto.Download, error) {
	tok, err := s.tokenRepo.Get(ctx, token)
	if err != nil {
		return nil, mapTokenError(err)
	}

	if tok.Used {
		return nil, ErrDownloadUsed
	}

	now := s.now()
	if tok.IsExpired(now) {
		if err := s.tokenRepo.Delete(ctx, token); err != nil {
			return nil, fmt.Errorf("delete expired token: %w", err)
		}
		return nil, ErrDownloadExpired
	}

	path, err := s.archivePath(tok.ProductID)
	if err != nil {
		return nil, ErrFileNotFound
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("open archive: %w", err)
	}

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("stat archive: %w", err)
		}
		return nil, ErrFileNotFound
	}

	// mark used before any byte leaves; a concurrent request loses here
	if _, err := s.tokenRepo.Claim(ctx, token, now); err != nil {
		f.Close()
		return nil, mapTokenError(err)
	}

	return &dto.Download{
		Token:    token,
		FileName: tok.ArchiveName(),
		Size:     info.Size(),
		Body:     f,
	}, nil
}

func (s *downloadServiceImpl) Complete(_ context.Context, download *dto.Download, written int64) {
	log.Info().
		Str("file", download.FileName).
		Int64("bytes", written).
		Msg("download completed")
}

func (s *downloadServiceImpl) Abort(ctx context.Context, download *dto.Download, cause error) {
	// the request context is usually cancelled by now (client went away)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	released, err := s.tokenRepo.Release(ctx, download.Token, s.maxRetries)
	if err != nil {
		log.Error().Err(err).Str("file", download.FileName).Msg("release download token")
		return
	}

	log.Warn().
		Err(cause).
		Str("file", download.FileName).
		Bool("retry_allowed", released).
		Msg("download transfer failed")
}

func (s *downloadServiceImpl) StoreArchive(_ context.Context, productID string, src io.Reader) error {
	path, err := s.archivePath(productID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create downloads dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move archive into place: %w", err)
	}

	log.Info().Str("product_id", productID).Msg("archive stored")
	return nil
}

func (s *downloadServiceImpl) archivePath(productID string) (string, error) {
	if !productIDPattern.MatchString(productID) || strings.Contains(productID, "..") {
		return "", ErrInvalidProductID
	}
	return filepath.Join(s.dir, productID+".zip"), nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, repository.ErrTokenNotFound):
		return ErrDownloadNotFound
	case errors.Is(err, repository.ErrTokenUsed):
		return ErrDownloadUsed
	case errors.Is(err, repository.ErrTokenExpired):
		return ErrDownloadExpired
	}
	return err
}
