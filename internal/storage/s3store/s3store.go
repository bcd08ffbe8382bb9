// Package s3store хранит снимки объектами в S3-совместимом хранилище.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
	"github.com/unentropy/unentropy-sub001/internal/pkg/urlutil"
	"github.com/unentropy/unentropy-sub001/internal/storage"
)

// Name — имя провайдера в конфигурации.
const Name = "s3"

const (
	defaultRegion = "us-east-1"
	contentType   = "application/json"
)

// Descriptor описывает провайдер для реестра storage.
var Descriptor = storage.Descriptor{
	Name: Name,
	Options: []string{
		"bucket", "prefix", "region", "endpoint", "use_path_style",
		"access_key_id", "secret_access_key",
	},
	Open: open,
}

// Config — параметры подключения к бакету.
type Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Client — подмножество методов *s3.Client, используемых провайдером.
type Client interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store — провайдер поверх S3.
type Store struct {
	client Client
	bucket string
	prefix string
	logger logging.Logger
}

func open(ctx context.Context, opts storage.Options, deps storage.Deps) (storage.Provider, error) {
	cfg, err := configFromOptions(opts)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, deps.Logger)
}

func configFromOptions(opts storage.Options) (Config, error) {
	var (
		cfg Config
		err error
	)
	if cfg.Bucket, err = opts.RequiredString("bucket"); err != nil {
		return cfg, err
	}
	if cfg.Prefix, err = opts.String("prefix", ""); err != nil {
		return cfg, err
	}
	if cfg.Region, err = opts.String("region", defaultRegion); err != nil {
		return cfg, err
	}
	if cfg.Endpoint, err = opts.String("endpoint", ""); err != nil {
		return cfg, err
	}
	if cfg.UsePathStyle, err = opts.Bool("use_path_style", false); err != nil {
		return cfg, err
	}
	if cfg.AccessKeyID, err = opts.String("access_key_id", ""); err != nil {
		return cfg, err
	}
	if cfg.SecretAccessKey, err = opts.String("secret_access_key", ""); err != nil {
		return cfg, err
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return cfg, &storage.OptionError{Key: "access_key_id", Msg: "access_key_id и secret_access_key задаются вместе"}
	}
	return cfg, nil
}

// New создаёт клиент S3. Без явных ключей используется стандартная цепочка
// учётных данных AWS (переменные окружения, профиль, роль).
func New(ctx context.Context, cfg Config, logger logging.Logger) (*Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать конфигурацию AWS: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	st := NewWithClient(client, cfg.Bucket, cfg.Prefix, logger)
	if cfg.Endpoint != "" {
		st.logger.Debug("S3-совместимый endpoint", "endpoint", urlutil.MaskURL(cfg.Endpoint), "path_style", cfg.UsePathStyle)
	}
	return st, nil
}

// NewWithClient создаёт провайдер поверх готового клиента.
func NewWithClient(client Client, bucket, prefix string, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Store{
		client: client,
		bucket: strings.TrimSpace(bucket),
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
		logger: logger,
	}
}

func (s *Store) objectKey(key string) string {
	if s.prefix == "" {
		return key + ".json"
	}
	return s.prefix + "/" + key + ".json"
}

// Fetch читает объект снимка.
func (s *Store) Fetch(ctx context.Context, key string) (*metric.Snapshot, error) {
	objKey := s.objectKey(key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &objKey,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("get object s3://%s/%s: %w", s.bucket, objKey, err)
	}
	defer func() {
		if cerr := out.Body.Close(); cerr != nil {
			s.logger.Warn("Ошибка закрытия тела ответа S3", "error", cerr)
		}
	}()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("чтение s3://%s/%s: %w", s.bucket, objKey, err)
	}
	return metric.Decode(data)
}

// Store записывает объект снимка, перезаписывая предыдущий.
func (s *Store) Store(ctx context.Context, key string, snap *metric.Snapshot) error {
	data, err := metric.Encode(snap)
	if err != nil {
		return err
	}
	objKey := s.objectKey(key)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &objKey,
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object s3://%s/%s: %w", s.bucket, objKey, err)
	}
	s.logger.Debug("Снимок записан в S3", "bucket", s.bucket, "key", objKey)
	return nil
}

// Close ничего не делает: клиент S3 не держит соединений.
func (s *Store) Close() error { return nil }

// isNotFound распознаёт NoSuchKey и голый 404 от S3-совместимых хранилищ.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}
