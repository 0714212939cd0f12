package audit

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"oauth2-server/config"
	"oauth2-server/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archiver периодически выгружает журнал аудита в S3 для долговременного
// хранения. Выгрузка идёт в фоне и не трогает путь запроса.
type Archiver struct {
	client  *s3.Client
	bucket  string
	logFile string
}

func NewArchiver(ctx context.Context, cfg *config.AuditConfig) (*Archiver, error) {
	var client *s3.Client

	if cfg.S3.Local {
		client = s3.New(s3.Options{
			Region: cfg.S3.Region,
			Credentials: credentials.NewStaticCredentialsProvider(
				"minioadmin",
				"minioadmin",
				"",
			),
			BaseEndpoint: aws.String(cfg.S3.Endpoint),
			UsePathStyle: true,
		})

		if err := createBucketIfNotExists(ctx, client, cfg.S3.Bucket); err != nil {
			return nil, util.LogError("[Archiver] ошибка создания бакета", err)
		}
	} else {
		awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.S3.Region))
		if err != nil {
			return nil, util.LogError("[Archiver] ошибка загрузки AWS config", err)
		}
		client = s3.NewFromConfig(awsCfg)
	}

	return &Archiver{
		client:  client,
		bucket:  cfg.S3.Bucket,
		logFile: cfg.LogFile,
	}, nil
}

// createBucketIfNotExists создаёт бакет если он не существует
func createBucketIfNotExists(ctx context.Context, client *s3.Client, bucket string) error {
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})

	if err == nil {
		return nil
	}

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})

	if err != nil {
		return fmt.Errorf("не удалось создать бакет %s: %w", bucket, err)
	}

	return nil
}

// Archive выгружает текущий файл журнала под ключом с отметкой времени.
func (a *Archiver) Archive(ctx context.Context) error {
	file, err := os.Open(a.logFile)
	if err != nil {
		return util.LogError("[Archiver] ошибка открытия журнала аудита", err)
	}
	defer file.Close()

	key := fmt.Sprintf("audit/%s/%s",
		time.Now().UTC().Format("2006-01-02"),
		fmt.Sprintf("%d-%s", time.Now().UTC().Unix(), filepath.Base(a.logFile)),
	)

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return util.LogError("[Archiver] ошибка выгрузки журнала в S3", err)
	}

	return nil
}

// RunPeriodic выгружает журнал раз в interval до отмены контекста.
func (a *Archiver) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := a.Archive(ctx); err != nil {
				log.Printf("архивация журнала аудита не удалась: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
