package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config holds the settings for an S3-compatible photo bucket. Endpoint is
// optional and allows pointing at R2/MinIO instead of AWS.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3PhotoStore stores photos in an S3-compatible bucket. Objects are keyed
// "patientID/photoID" so per-patient listing is a prefix scan; metadata rides
// along as object metadata.
type S3PhotoStore struct {
	client *s3.Client
	bucket string
}

// NewS3PhotoStore creates an S3-backed PhotoStore.
func NewS3PhotoStore(cfg S3Config) *S3PhotoStore {
	opts := s3.Options{
		Region: cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}

	return &S3PhotoStore{
		client: s3.New(opts),
		bucket: cfg.Bucket,
	}
}

func (s *S3PhotoStore) key(patientID, id string) string {
	return patientID + "/" + id
}

func (s *S3PhotoStore) Upload(ctx context.Context, meta PhotoMetadata, content io.Reader) (*PhotoMetadata, error) {
	data, err := validateUpload(&meta, content)
	if err != nil {
		return nil, err
	}
	if meta.PatientID == "" {
		return nil, fmt.Errorf("patient id is required for S3 storage")
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(meta.PatientID, meta.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(meta.ContentType),
		Metadata: map[string]string{
			"file-name":  meta.FileName,
			"patient-id": meta.PatientID,
			"hash":       meta.Hash,
			"size":       strconv.FormatInt(meta.Size, 10),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	out := meta // copy
	return &out, nil
}

// findKey locates the object for a photo id. Keys embed the patient id, so a
// lookup by id alone requires scanning prefixes; callers on hot paths should
// hold the patient id and use keyed access. Photo ids are UUIDs, so the first
// match is the only match.
func (s *S3PhotoStore) findKey(ctx context.Context, id string) (string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if len(key) >= len(id) && key[len(key)-len(id):] == id {
				return key, nil
			}
		}
	}
	return "", ErrPhotoNotFound
}

func (s *S3PhotoStore) Download(ctx context.Context, id string) (io.ReadCloser, *PhotoMetadata, error) {
	key, err := s.findKey(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, nil, ErrPhotoNotFound
		}
		return nil, nil, fmt.Errorf("get object: %w", err)
	}

	meta := metadataFromObject(id, out.Metadata, aws.ToString(out.ContentType), aws.ToInt64(out.ContentLength))
	return out.Body, meta, nil
}

func (s *S3PhotoStore) GetMetadata(ctx context.Context, id string) (*PhotoMetadata, error) {
	key, err := s.findKey(ctx, id)
	if err != nil {
		return nil, err
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("head object: %w", err)
	}

	return metadataFromObject(id, out.Metadata, aws.ToString(out.ContentType), aws.ToInt64(out.ContentLength)), nil
}

func (s *S3PhotoStore) Delete(ctx context.Context, id string) error {
	key, err := s.findKey(ctx, id)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *S3PhotoStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*PhotoMetadata, int, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(patientID + "/"),
	})

	var all []*PhotoMetadata
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			id := key[len(patientID)+1:]
			all = append(all, &PhotoMetadata{
				ID:        id,
				PatientID: patientID,
				Size:      aws.ToInt64(obj.Size),
				CreatedAt: aws.ToTime(obj.LastModified),
			})
		}
	}

	total := len(all)
	if limit <= 0 {
		limit = 20
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func metadataFromObject(id string, md map[string]string, contentType string, size int64) *PhotoMetadata {
	meta := &PhotoMetadata{
		ID:          id,
		ContentType: contentType,
		Size:        size,
		FileName:    md["file-name"],
		PatientID:   md["patient-id"],
		Hash:        md["hash"],
	}
	if s, err := strconv.ParseInt(md["size"], 10, 64); err == nil && s > 0 {
		meta.Size = s
	}
	return meta
}
