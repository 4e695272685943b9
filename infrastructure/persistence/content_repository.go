package persistence

import (
	"context"
	"database/sql"
	"errors"

	"socialdesk/domain/model"
	"socialdesk/domain/repository"
	"socialdesk/infrastructure/logger"

	"github.com/lib/pq"
)

// ErrContentNotFound is returned when the draft does not exist or belongs
// to another user.
var ErrContentNotFound = errors.New("content not found")

type ContentRepository struct{ db *sql.DB }

func NewContentRepository(db *sql.DB) repository.IContent { return &ContentRepository{db} }

func (r *ContentRepository) GetByID(ctx context.Context, id, userID string) (*model.PublishContent, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, text, image_urls, title, author, digest, source_url, thumbnail
		 FROM contents WHERE id = $1 AND user_id = $2`,
		id, userID)

	var (
		content   model.PublishContent
		title     sql.NullString
		author    sql.NullString
		digest    sql.NullString
		sourceURL sql.NullString
	)
	err := row.Scan(&content.ID, &content.UserID, &content.Text, pq.Array(&content.ImageURLs),
		&title, &author, &digest, &sourceURL, &content.Thumbnail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContentNotFound
		}
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":      err,
			"content_id": id,
		}).Error("querying content failed")
		return nil, err
	}
	content.Title = title.String
	content.Author = author.String
	content.Digest = digest.String
	content.SourceURL = sourceURL.String
	return &content, nil
}
