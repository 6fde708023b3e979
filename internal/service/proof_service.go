package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ceama-enrollment-api/internal/dto"
	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
	"github.com/noah-isme/ceama-enrollment-api/pkg/storage"
)

type proofFileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type proofSignedURLSigner interface {
	Sign(resourceID, path string) (string, storage.DownloadGrant, error)
	Verify(token string) (storage.DownloadGrant, error)
}

type proofReader interface {
	ListProofs(ctx context.Context, paymentID string) ([]models.PaymentProof, error)
	FindProof(ctx context.Context, id string) (*models.PaymentProof, error)
}

// ProofUpload carries one uploaded payment proof.
type ProofUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// StoredProof is a proof file written to storage but not yet recorded in the database.
type StoredProof struct {
	Path         string
	OriginalName string
	ContentType  string
	SizeBytes    int64
}

// ProofDownload bundles file reader metadata for streaming.
type ProofDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
	ExpiresAt time.Time
}

// ProofServiceConfig holds validation parameters for proof uploads.
type ProofServiceConfig struct {
	MaxFileSize  int64
	MaxFiles     int
	AllowedMIMEs []string
	APIPrefix    string
}

// ProofService validates, stores and serves payment proof files.
type ProofService struct {
	repo    proofReader
	storage proofFileStorage
	signer  proofSignedURLSigner
	audit   auditLogger
	logger  *zap.Logger
	cfg     ProofServiceConfig
	mimeSet map[string]struct{}
	now     func() time.Time
}

// NewProofService constructs the service with defaults.
func NewProofService(repo proofReader, files proofFileStorage, signer proofSignedURLSigner, audit auditLogger, logger *zap.Logger, cfg ProofServiceConfig) *ProofService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 3
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "image/jpeg", "image/png", "image/webp", "image/gif"}
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &ProofService{
		repo:    repo,
		storage: files,
		signer:  signer,
		audit:   audit,
		logger:  logger,
		cfg:     cfg,
		mimeSet: mimeSet,
		now:     time.Now,
	}
}

// Validate checks count, size and content type of the uploads, filling in detected types.
func (s *ProofService) Validate(uploads []ProofUpload) ([]ProofUpload, error) {
	if len(uploads) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one payment proof is required")
	}
	if len(uploads) > s.cfg.MaxFiles {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d payment proofs are allowed", s.cfg.MaxFiles))
	}
	validated := make([]ProofUpload, 0, len(uploads))
	for _, upload := range uploads {
		if upload.Content == nil || upload.Size <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "payment proof file is empty")
		}
		if upload.Size > s.cfg.MaxFileSize {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s exceeds %d bytes limit", upload.Filename, s.cfg.MaxFileSize))
		}
		mimeType, err := s.detectMime(upload)
		if err != nil {
			return nil, err
		}
		if _, allowed := s.mimeSet[mimeType]; !allowed {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s: file type %s not allowed", upload.Filename, mimeType))
		}
		upload.MimeType = mimeType
		validated = append(validated, upload)
	}
	return validated, nil
}

// Store writes validated uploads to storage. On failure nothing is left behind.
func (s *ProofService) Store(uploads []ProofUpload) ([]StoredProof, error) {
	stored := make([]StoredProof, 0, len(uploads))
	for _, upload := range uploads {
		filename := s.generateFilename(upload.Filename, upload.MimeType)
		if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
			s.Discard(stored)
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to reset upload stream")
		}
		saved, err := s.storage.SaveStream(filename, upload.Content)
		if err != nil {
			s.Discard(stored)
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to persist payment proof")
		}
		stored = append(stored, StoredProof{
			Path:         saved,
			OriginalName: filepath.Base(upload.Filename),
			ContentType:  upload.MimeType,
			SizeBytes:    upload.Size,
		})
	}
	return stored, nil
}

// Discard removes stored files, logging failures.
func (s *ProofService) Discard(stored []StoredProof) {
	for _, proof := range stored {
		if err := s.storage.Delete(proof.Path); err != nil {
			s.logger.Warn("failed to discard payment proof", zap.String("path", proof.Path), zap.Error(err))
		}
	}
}

// RemoveFiles deletes files by path and returns the first error.
func (s *ProofService) RemoveFiles(paths []string) error {
	var firstErr error
	for _, p := range paths {
		if err := s.storage.Delete(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Links returns signed download URLs for the proofs of a payment.
func (s *ProofService) Links(ctx context.Context, paymentID string, actor *models.JWTClaims) ([]dto.ProofLink, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	proofs, err := s.repo.ListProofs(ctx, paymentID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list payment proofs")
	}
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	links := make([]dto.ProofLink, 0, len(proofs))
	for _, proof := range proofs {
		token, grant, err := s.signer.Sign(proof.ID, proof.FilePath)
		if err != nil {
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to generate download token")
		}
		links = append(links, dto.ProofLink{
			PaymentProof: proof,
			DownloadURL:  fmt.Sprintf("%s/admin/proofs/download?token=%s", base, url.QueryEscape(token)),
			ExpiresAt:    grant.ExpiresAt,
		})
	}
	return links, nil
}

// Download validates a signed token and opens the proof file.
func (s *ProofService) Download(ctx context.Context, token string, actor *models.JWTClaims) (*ProofDownload, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	grant, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	relPath := grant.Path
	proof, err := s.repo.FindProof(ctx, grant.ResourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment proof not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load payment proof")
	}
	if relPath != proof.FilePath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to open payment proof")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to read payment proof metadata")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionProofAccess,
		Resource:   models.AuditResourceProof,
		ResourceID: &proof.ID,
	})
	filename := proof.OriginalName
	if filename == "" {
		filename = filepath.Base(relPath)
	}
	return &ProofDownload{
		File:      file,
		Filename:  filename,
		MimeType:  proof.ContentType,
		SizeBytes: info.Size(),
		ExpiresAt: grant.ExpiresAt,
	}, nil
}

func (s *ProofService) detectMime(upload ProofUpload) (string, error) {
	header := make([]byte, 512)
	n, err := upload.Content.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.WrapAs(err, appErrors.ErrInternal, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.WrapAs(err, appErrors.ErrInternal, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	declared := strings.ToLower(strings.TrimSpace(strings.Split(upload.MimeType, ";")[0]))
	sniffed := strings.ToLower(strings.Split(http.DetectContentType(header[:n]), ";")[0])
	// Unrecognised bytes fall back to the declared type.
	if sniffed == "application/octet-stream" && declared != "" {
		return declared, nil
	}
	return sniffed, nil
}

func (s *ProofService) generateFilename(original, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" || len(ext) > 6 {
		ext = mimeExtension(mimeType)
	}
	now := s.now().UTC()
	return path.Join(now.Format("2006"), now.Format("01"), fmt.Sprintf("proof_%d_%s%s", now.Unix(), randomSuffix(), ext))
}

func mimeExtension(mime string) string {
	switch strings.ToLower(mime) {
	case "application/pdf":
		return ".pdf"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func (s *ProofService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "proof-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to write audit log", zap.Error(err), zap.String("action", log.Action))
	}
}
