package repository

import (
	"context"
	"docqa-go/internal/model"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const attemptsTTL = 24 * time.Hour

// KnowledgeFileRepository 定义了知识库文件的持久化操作。
type KnowledgeFileRepository interface {
	// KnowledgeFile operations (GORM)
	Create(record *model.KnowledgeFile) error
	GetByMD5(fileMD5 string) (*model.KnowledgeFile, error)
	List() ([]model.KnowledgeFile, error)
	MarkIndexed(fileMD5 string, chunks int) error
	MarkFailed(fileMD5 string) error
	MarkQueued(fileMD5 string) error
	Delete(fileMD5 string) error

	// 导入重试计数 (Redis)
	IncrAttempts(ctx context.Context, fileMD5 string) (int64, error)
	ClearAttempts(ctx context.Context, fileMD5 string) error
}

// knowledgeFileRepository 是 KnowledgeFileRepository 接口的 GORM+Redis 实现。
type knowledgeFileRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
}

// NewKnowledgeFileRepository 创建一个新的 KnowledgeFileRepository 实例。
func NewKnowledgeFileRepository(db *gorm.DB, redisClient *redis.Client) KnowledgeFileRepository {
	return &knowledgeFileRepository{db: db, redisClient: redisClient}
}

func attemptsKey(fileMD5 string) string {
	return "ingest:attempts:" + fileMD5
}

// Create 创建一条文件记录。
func (r *knowledgeFileRepository) Create(record *model.KnowledgeFile) error {
	return r.db.Create(record).Error
}

// GetByMD5 根据文件 MD5 查询记录，不存在时返回 gorm.ErrRecordNotFound。
func (r *knowledgeFileRepository) GetByMD5(fileMD5 string) (*model.KnowledgeFile, error) {
	var record model.KnowledgeFile
	if err := r.db.Where("file_md5 = ?", fileMD5).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// List 按创建时间倒序返回全部文件。
func (r *knowledgeFileRepository) List() ([]model.KnowledgeFile, error) {
	var files []model.KnowledgeFile
	err := r.db.Order("created_at desc").Find(&files).Error
	return files, err
}

// MarkIndexed 标记文件导入完成。
func (r *knowledgeFileRepository) MarkIndexed(fileMD5 string, chunks int) error {
	now := time.Now()
	return r.db.Model(&model.KnowledgeFile{}).Where("file_md5 = ?", fileMD5).Updates(map[string]interface{}{
		"status":     model.FileStatusIndexed,
		"chunks":     chunks,
		"indexed_at": &now,
	}).Error
}

// MarkFailed 标记文件导入失败。
func (r *knowledgeFileRepository) MarkFailed(fileMD5 string) error {
	return r.db.Model(&model.KnowledgeFile{}).Where("file_md5 = ?", fileMD5).Update("status", model.FileStatusFailed).Error
}

// MarkQueued 将文件重新置为排队状态。
func (r *knowledgeFileRepository) MarkQueued(fileMD5 string) error {
	return r.db.Model(&model.KnowledgeFile{}).Where("file_md5 = ?", fileMD5).Update("status", model.FileStatusQueued).Error
}

// Delete 删除文件记录及其分块记录。
func (r *knowledgeFileRepository) Delete(fileMD5 string) error {
	var errs []error
	if err := r.db.Where("file_md5 = ?", fileMD5).Delete(&model.DocumentChunk{}).Error; err != nil {
		errs = append(errs, err)
	}
	if err := r.db.Where("file_md5 = ?", fileMD5).Delete(&model.KnowledgeFile{}).Error; err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("删除文件记录部分失败（fileMD5=%s）: %v", fileMD5, errors.Join(errs...))
	}
	return nil
}

// IncrAttempts 累加导入尝试次数并返回累加后的值。
func (r *knowledgeFileRepository) IncrAttempts(ctx context.Context, fileMD5 string) (int64, error) {
	key := attemptsKey(fileMD5)
	n, err := r.redisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		r.redisClient.Expire(ctx, key, attemptsTTL)
	}
	return n, nil
}

// ClearAttempts 清除导入尝试次数。
func (r *knowledgeFileRepository) ClearAttempts(ctx context.Context, fileMD5 string) error {
	return r.redisClient.Del(ctx, attemptsKey(fileMD5)).Err()
}
