package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"socialdesk/domain/model"
)

func TestPublishHistoryRepository_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPublishHistoryRepository(db)
	postID := "4512345678901234"
	postURL := "https://weibo.com/5871234567/statuses/4512345678901234"

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO publish_records`)).
		WithArgs("content-1", int64(7), "user-1", "weibo", model.PublishStatusSucceeded,
			&postID, &postURL, nil, nil, 1, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(100)))

	id, err := repo.Insert(context.Background(), &model.PublishRecord{
		ContentID:    "content-1",
		ConfigID:     7,
		UserID:       "user-1",
		Platform:     "weibo",
		Status:       model.PublishStatusSucceeded,
		PostID:       &postID,
		PostURL:      &postURL,
		AttemptCount: 1,
	})

	require.NoError(t, err)
	require.Equal(t, int64(100), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishHistoryRepository_ListByContent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPublishHistoryRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+publishRecordColumns+` FROM publish_records WHERE content_id = $1 AND user_id = $2 ORDER BY created_at DESC`)).
		WithArgs("content-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "content_id", "config_id", "user_id", "platform", "status",
			"post_id", "post_url", "error_code", "error_message", "attempt_count", "created_at",
		}).
			AddRow(int64(2), "content-1", int64(7), "user-1", "weibo", model.PublishStatusSucceeded,
				"4512", "https://weibo.com/u/4512", nil, nil, 1, now).
			AddRow(int64(1), "content-1", int64(8), "user-1", "wechat", model.PublishStatusFailed,
				nil, nil, model.CodeRetryExhausted, "45009: reach max api daily quota", 3, now.Add(-time.Hour)))

	recs, err := repo.ListByContent(context.Background(), "content-1", "user-1")

	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, model.PublishStatusSucceeded, recs[0].Status)
	require.NotNil(t, recs[0].PostID)
	require.Equal(t, "4512", *recs[0].PostID)
	require.Nil(t, recs[0].ErrorCode)
	require.Equal(t, model.PublishStatusFailed, recs[1].Status)
	require.NotNil(t, recs[1].ErrorCode)
	require.Equal(t, model.CodeRetryExhausted, *recs[1].ErrorCode)
	require.Equal(t, 3, recs[1].AttemptCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishHistoryRepository_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPublishHistoryRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM publish_records WHERE user_id = $1`)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(25)))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM publish_records WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`)).
		WithArgs("user-1", 10, 20).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "content_id", "config_id", "user_id", "platform", "status",
			"post_id", "post_url", "error_code", "error_message", "attempt_count", "created_at",
		}).AddRow(int64(5), "content-9", int64(7), "user-1", "weibo", model.PublishStatusSucceeded,
			"99", nil, nil, nil, 1, now))

	recs, total, err := repo.ListByUser(context.Background(), "user-1", 10, 20)

	require.NoError(t, err)
	require.Equal(t, int64(25), total)
	require.Len(t, recs, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
