package repository

import (
	"context"
	"io"

	"job_board_chat_service/internal/chat/domain"
	"job_board_chat_service/pkg/database"

	"github.com/google/uuid"
)

// AttachmentStore definition attachment upload collaborator,
// pipeline只收結果的url/filename
type AttachmentStore interface {
	Upload(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (*domain.Attachment, error)
}

type minioAttachmentStore struct {
	mc *database.MinIOClient
}

// NewMinIOAttachmentStore create AttachmentStore on minio
func NewMinIOAttachmentStore(mc *database.MinIOClient) AttachmentStore {
	return &minioAttachmentStore{mc: mc}
}

func (s *minioAttachmentStore) Upload(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (*domain.Attachment, error) {
	// object路徑加上uuid前綴,同名檔案不互相覆蓋
	objectName := uuid.New().String() + "/" + filename
	if err := s.mc.UploadStream(ctx, objectName, r, size, contentType); err != nil {
		return nil, err
	}
	return &domain.Attachment{
		URL:      s.mc.ObjectURL(objectName),
		Filename: filename,
	}, nil
}
