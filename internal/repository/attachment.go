package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sailchat/internal/logger"
	"github.com/sailchat/internal/model"
)

// AttachmentRepository resolves document and image ids carried in message
// bodies. Uploads happen elsewhere; the chat service only reads.
type AttachmentRepository struct {
	pool *pgxpool.Pool
}

func NewAttachmentRepository(pool *pgxpool.Pool) *AttachmentRepository {
	return &AttachmentRepository{pool: pool}
}

func (r *AttachmentRepository) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	defer logger.DeferLogDuration("attachment.GetDocument", time.Now())()
	d := &model.Document{}
	err := r.pool.QueryRow(ctx,
		`SELECT document_id, document_name, document_link FROM documents WHERE document_id = $1`, id,
	).Scan(&d.DocumentID, &d.DocumentName, &d.DocumentLink)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("attachmentRepo.GetDocument: %w", err)
	}
	return d, nil
}

func (r *AttachmentRepository) GetImage(ctx context.Context, id string) (*model.Image, error) {
	defer logger.DeferLogDuration("attachment.GetImage", time.Now())()
	img := &model.Image{}
	err := r.pool.QueryRow(ctx,
		`SELECT image_id, image_name, image_link FROM images WHERE image_id = $1`, id,
	).Scan(&img.ImageID, &img.ImageName, &img.ImageLink)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("attachmentRepo.GetImage: %w", err)
	}
	return img, nil
}
