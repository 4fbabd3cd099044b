package services

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	fig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"github.com/techagentng/achat/config"
	apiError "github.com/techagentng/achat/errors"
	"github.com/techagentng/achat/models"
	"go.uber.org/zap"
)

const (
	MaxImageFileSize = 5 * 1024 * 1024
	MaxAudioFileSize = 10 * 1024 * 1024

	thumbnailSize     = 200
	profilePicMaxEdge = 150
)

// AttachmentService uploads media blobs to the attachment store and returns
// durable public URLs. Uploads are all-or-nothing: there is no resume and no
// cancel path, a timeout is an ordinary failure.
type AttachmentService interface {
	Upload(ctx context.Context, data []byte, filename, kind string) (string, *apiError.Error)
	UploadProfilePic(ctx context.Context, data []byte, filename string) (string, *apiError.Error)
}

type attachmentService struct {
	Config *config.Config
	logger *zap.SugaredLogger
	client *s3.Client
}

func NewAttachmentService(logger *zap.SugaredLogger, conf *config.Config) (AttachmentService, error) {
	cfg, err := fig.LoadDefaultConfig(context.Background(),
		fig.WithRegion(conf.AwsRegion),
		fig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			conf.AwsAccessKeyID,
			conf.AwsSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config, %v", err)
	}

	return &attachmentService{
		Config: conf,
		logger: logger,
		client: s3.NewFromConfig(cfg),
	}, nil
}

func CheckSupportedFile(filename, kind string) (bool, string) {
	supportedImageTypes := map[string]bool{
		".png":  true,
		".jpeg": true,
		".jpg":  true,
		".gif":  true,
	}
	supportedAudioTypes := map[string]bool{
		".mp3":  true,
		".wav":  true,
		".ogg":  true,
		".webm": true,
	}

	fileExtension := strings.ToLower(filepath.Ext(filename))
	if kind == models.MediaKindAudio {
		return supportedAudioTypes[fileExtension], fileExtension
	}
	return supportedImageTypes[fileExtension], fileExtension
}

func checkFileSize(data []byte, kind string) error {
	limit := MaxImageFileSize
	if kind == models.MediaKindAudio {
		limit = MaxAudioFileSize
	}
	if len(data) > limit {
		return fmt.Errorf("file size exceeds limit of %d bytes", limit)
	}
	return nil
}

func generateUniqueFilename(extension string) string {
	timestamp := time.Now().UnixNano()
	randomUUID := uuid.New()
	return fmt.Sprintf("%d_%s%s", timestamp, randomUUID, extension)
}

// Upload validates the blob, stores it under a unique key and, for images,
// stores a thumbnail alongside. The returned URL is the durable full-size one;
// nothing is persisted anywhere else until the caller gets it back.
func (m *attachmentService) Upload(ctx context.Context, data []byte, filename, kind string) (string, *apiError.Error) {
	supported, ext := CheckSupportedFile(filename, kind)
	if !supported {
		return "", apiError.NewValidation(fmt.Sprintf("unsupported file type: %s", ext))
	}
	if err := checkFileSize(data, kind); err != nil {
		return "", apiError.NewValidation(err.Error())
	}

	folder := "chat_images"
	if kind == models.MediaKindAudio {
		folder = "chat_audio"
	}
	key := fmt.Sprintf("%s/%s", folder, generateUniqueFilename(ext))

	url, err := m.putObject(ctx, key, data)
	if err != nil {
		m.logger.Errorf("uploading %s: %v", key, err)
		return "", apiError.NewTransport(err)
	}

	if kind == models.MediaKindImage {
		if err := m.uploadThumbnail(ctx, key, data); err != nil {
			// The full-size upload already succeeded; a missing thumbnail only
			// costs bandwidth on render.
			m.logger.Warnf("thumbnail for %s: %v", key, err)
		}
	}

	return url, nil
}

// UploadProfilePic downscales the picture before storing it; profile pictures
// render small everywhere.
func (m *attachmentService) UploadProfilePic(ctx context.Context, data []byte, filename string) (string, *apiError.Error) {
	supported, ext := CheckSupportedFile(filename, models.MediaKindImage)
	if !supported {
		return "", apiError.NewValidation(fmt.Sprintf("unsupported file type: %s", ext))
	}
	if err := checkFileSize(data, models.MediaKindImage); err != nil {
		return "", apiError.NewValidation(err.Error())
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", apiError.NewValidation("could not decode image")
	}
	scaled := resize.Thumbnail(profilePicMaxEdge, profilePicMaxEdge, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, scaled, imaging.JPEG); err != nil {
		m.logger.Errorf("encoding profile pic: %v", err)
		return "", apiError.ErrInternalServerError
	}

	key := fmt.Sprintf("profile_pictures/%s", generateUniqueFilename(".jpg"))
	url, err := m.putObject(ctx, key, buf.Bytes())
	if err != nil {
		m.logger.Errorf("uploading %s: %v", key, err)
		return "", apiError.NewTransport(err)
	}
	return url, nil
}

func (m *attachmentService) uploadThumbnail(ctx context.Context, key string, data []byte) error {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "decoding image")
	}
	thumb := imaging.Thumbnail(img, thumbnailSize, thumbnailSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return errors.Wrap(err, "encoding thumbnail")
	}

	_, err = m.putObject(ctx, "thumbnails/"+filepath.Base(key)+".jpg", buf.Bytes())
	return err
}

func (m *attachmentService) putObject(ctx context.Context, key string, data []byte) (string, error) {
	bucketName := m.Config.AwsBucket
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
		ACL:    types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload %s to S3", key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucketName, m.Config.AwsRegion, key), nil
}
