package storage

import (
	"github.com/customeros/webmail/config"
	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/services/storage/aws_client"
)

// NewR2StorageService creates a StorageService configured for Cloudflare R2
func NewR2StorageService(r2Config *config.R2StorageConfig, bucketName string) interfaces.StorageService {
	r2Client := aws_client.NewR2Client(aws_client.R2Config{
		AccountID:       r2Config.AccountID,
		AccessKeyID:     r2Config.AccessKeyID,
		AccessKeySecret: r2Config.AccessKeySecret,
	})
	return NewStorageService(r2Client, bucketName)
}
