package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"socialdesk/domain/model"
	"socialdesk/domain/repository"
	"socialdesk/infrastructure/logger"
)

type PublishHistoryRepository struct{ db *sql.DB }

func NewPublishHistoryRepository(db *sql.DB) repository.IPublishHistory {
	return &PublishHistoryRepository{db}
}

const publishRecordColumns = `id, content_id, config_id, user_id, platform, status, post_id, post_url, error_code, error_message, attempt_count, created_at`

func (r *PublishHistoryRepository) Insert(ctx context.Context, rec *model.PublishRecord) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO publish_records (content_id, config_id, user_id, platform, status, post_id, post_url, error_code, error_message, attempt_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		rec.ContentID, rec.ConfigID, rec.UserID, rec.Platform, rec.Status,
		rec.PostID, rec.PostURL, rec.ErrorCode, rec.ErrorMessage, rec.AttemptCount, rec.CreatedAt,
	).Scan(&id)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":      err,
			"content_id": rec.ContentID,
			"config_id":  rec.ConfigID,
		}).Error("inserting publish record failed")
		return 0, err
	}
	return id, nil
}

func (r *PublishHistoryRepository) ListByContent(ctx context.Context, contentID, userID string) ([]*model.PublishRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM publish_records WHERE content_id = $1 AND user_id = $2 ORDER BY created_at DESC`, publishRecordColumns),
		contentID, userID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("listing publish records by content failed")
		return nil, err
	}
	defer rows.Close()
	return collectPublishRecords(rows)
}

func (r *PublishHistoryRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.PublishRecord, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM publish_records WHERE user_id = $1`, userID).Scan(&total); err != nil {
		logger.GetLogger().WithField("error", err).Error("counting publish records failed")
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM publish_records WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, publishRecordColumns),
		userID, limit, offset)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("listing publish records failed")
		return nil, 0, err
	}
	defer rows.Close()

	recs, err := collectPublishRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

func collectPublishRecords(rows *sql.Rows) ([]*model.PublishRecord, error) {
	var recs []*model.PublishRecord
	for rows.Next() {
		var (
			rec       model.PublishRecord
			postID    sql.NullString
			postURL   sql.NullString
			errCode   sql.NullString
			errMsg    sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.ContentID, &rec.ConfigID, &rec.UserID, &rec.Platform,
			&rec.Status, &postID, &postURL, &errCode, &errMsg, &rec.AttemptCount, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if postID.Valid {
			v := postID.String
			rec.PostID = &v
		}
		if postURL.Valid {
			v := postURL.String
			rec.PostURL = &v
		}
		if errCode.Valid {
			v := errCode.String
			rec.ErrorCode = &v
		}
		if errMsg.Valid {
			v := errMsg.String
			rec.ErrorMessage = &v
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}
