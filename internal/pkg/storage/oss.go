package storage

import (
	"bytes"
	"fmt"
	"io"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/pwcx/contract_go_server/config"
)

// OSS 阿里云 OSS 存储实现
type OSS struct {
	client     *oss.Client
	bucket     *oss.Bucket
	bucketName string
	cdnDomain  string
}

func NewOSS(cfg *config.OSSConfig) (*OSS, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &OSS{
		client:     client,
		bucket:     bucket,
		bucketName: cfg.BucketName,
		cdnDomain:  cfg.CDNDomain,
	}, nil
}

func (o *OSS) Save(key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	err := o.bucket.PutObject(key, bytes.NewReader(data), oss.ContentType(contentType))
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

func (o *OSS) Load(key string) ([]byte, error) {
	body, err := o.bucket.GetObject(key)
	if err != nil {
		if ossErr, ok := err.(oss.ServiceError); ok && ossErr.StatusCode == 404 {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

func (o *OSS) Delete(key string) error {
	if err := o.bucket.DeleteObject(key); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (o *OSS) Exists(key string) (bool, error) {
	exists, err := o.bucket.IsObjectExist(key)
	if err != nil {
		return false, fmt.Errorf("failed to check object: %w", err)
	}
	return exists, nil
}

func (o *OSS) List(prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	marker := ""

	for {
		result, err := o.bucket.ListObjects(oss.Prefix(prefix), oss.Marker(marker), oss.MaxKeys(1000))
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range result.Objects {
			objects = append(objects, ObjectInfo{
				Key:     obj.Key,
				Size:    obj.Size,
				ModTime: obj.LastModified,
			})
		}

		if !result.IsTruncated {
			break
		}
		marker = result.NextMarker
	}

	return objects, nil
}

func (o *OSS) URL(key string) string {
	if o.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", o.cdnDomain, key)
	}
	return fmt.Sprintf("https://%s.%s/%s", o.bucketName, o.client.Config.Endpoint, key)
}

// SignedURL 生成带签名的临时访问 URL（默认1小时有效）
func (o *OSS) SignedURL(key string, expireSeconds int64) (string, error) {
	if expireSeconds <= 0 {
		expireSeconds = 3600
	}
	signedURL, err := o.bucket.SignURL(key, oss.HTTPGet, expireSeconds)
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL: %w", err)
	}
	return signedURL, nil
}
