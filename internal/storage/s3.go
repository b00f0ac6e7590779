package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultPresignTTL срок действия подписанной ссылки на скачивание.
const DefaultPresignTTL = 15 * time.Minute

// S3Config параметры подключения к S3-совместимому хранилищу.
type S3Config struct {
	Bucket     string
	Region     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
	PresignTTL time.Duration
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type getPresigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store хранит файлы в бакете S3 и отдаёт их редиректом на подписанную ссылку.
type S3Store struct {
	bucket     string
	presignTTL time.Duration
	client     objectPutter
	presigner  getPresigner
}

// NewS3Store создаёт клиент S3 со статическими учётными данными.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Store(cfg.Bucket, cfg.PresignTTL, client, s3.NewPresignClient(client)), nil
}

func newS3Store(bucket string, ttl time.Duration, client objectPutter, presigner getPresigner) *S3Store {
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	return &S3Store{
		bucket:     bucket,
		presignTTL: ttl,
		client:     client,
		presigner:  presigner,
	}
}

// Save загружает файл в бакет.
func (s *S3Store) Save(ctx context.Context, kind, name string, r io.Reader) (string, error) {
	key, err := objectKey(kind, name)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return key, nil
}

// Serve перенаправляет клиента на подписанную ссылку GET.
func (s *S3Store) Serve(w http.ResponseWriter, r *http.Request, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	req, err := s.presigner.PresignGetObject(r.Context(), &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(mime.FormatMediaType("attachment", map[string]string{"filename": downloadName(key)})),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return fmt.Errorf("presign get object: %w", err)
	}

	http.Redirect(w, r, req.URL, http.StatusFound)
	return nil
}
