package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"docqa-go/internal/model"
	"docqa-go/internal/repository"
	"docqa-go/pkg/log"
	"docqa-go/pkg/tasks"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrFileNotFound 表示知识库中没有该文件。
var ErrFileNotFound = errors.New("knowledge file not found")

// ObjectStore 是原始文件的对象存储，storage.Bucket 满足该接口。
type ObjectStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// TaskProducer 发送导入任务，kafka.Producer 满足该接口。
type TaskProducer interface {
	ProduceIngestTask(ctx context.Context, task tasks.IngestTask) error
}

// FileRemover 从向量库中删除某个文件的全部分块。
type FileRemover interface {
	DeleteByFile(ctx context.Context, fileMD5 string) error
}

// UploadResult 是一次上传的结果。
type UploadResult struct {
	File *model.KnowledgeFile `json:"file"`
	// Duplicate 为 true 时文件已在知识库中，不会重复导入。
	Duplicate bool `json:"duplicate"`
}

// KnowledgeService 接口定义了知识库文件的业务操作。
type KnowledgeService interface {
	Upload(ctx context.Context, fileName string, reader io.Reader) (*UploadResult, error)
	List() ([]model.KnowledgeFile, error)
	Delete(ctx context.Context, fileMD5 string) error
	DownloadURL(ctx context.Context, fileMD5 string) (string, error)
	SeedDirectory(ctx context.Context, dir string) (int, error)
}

type knowledgeService struct {
	fileRepo  repository.KnowledgeFileRepository
	objects   ObjectStore
	producer  TaskProducer
	remover   FileRemover
	namespace string
}

// NewKnowledgeService 创建一个新的 KnowledgeService 实例。
func NewKnowledgeService(fileRepo repository.KnowledgeFileRepository, objects ObjectStore, producer TaskProducer, remover FileRemover, namespace string) KnowledgeService {
	return &knowledgeService{
		fileRepo:  fileRepo,
		objects:   objects,
		producer:  producer,
		remover:   remover,
		namespace: namespace,
	}
}

// Upload 保存文件到对象存储并投递导入任务。同一内容只导入一次，失败过的文件会重新投递。
func (s *knowledgeService) Upload(ctx context.Context, fileName string, reader io.Reader) (*UploadResult, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件失败: %w", err)
	}
	if len(content) == 0 {
		return nil, errors.New("上传文件为空")
	}
	sum := md5.Sum(content)
	fileMD5 := hex.EncodeToString(sum[:])

	record, err := s.fileRepo.GetByMD5(fileMD5)
	switch {
	case err == nil && record.Status != model.FileStatusFailed:
		log.Infof("[KnowledgeService] 文件已存在, 跳过导入, FileMD5: %s, FileName: %s", fileMD5, fileName)
		return &UploadResult{File: record, Duplicate: true}, nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("查询文件记录失败: %w", err)
	}

	if record == nil {
		record = &model.KnowledgeFile{
			FileMD5:   fileMD5,
			FileName:  filepath.Base(fileName),
			ObjectKey: "documents/" + uuid.NewString() + filepath.Ext(fileName),
			TotalSize: int64(len(content)),
			Status:    model.FileStatusQueued,
		}
	}

	contentType := mime.TypeByExtension(filepath.Ext(fileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.objects.Put(ctx, record.ObjectKey, bytes.NewReader(content), int64(len(content)), contentType); err != nil {
		return nil, fmt.Errorf("上传文件到对象存储失败: %w", err)
	}

	if record.ID == 0 {
		if err := s.fileRepo.Create(record); err != nil {
			return nil, fmt.Errorf("创建文件记录失败: %w", err)
		}
	} else {
		// 重新投递失败过的文件：状态回到排队，失败计数清零
		if err := s.fileRepo.MarkQueued(record.FileMD5); err != nil {
			return nil, fmt.Errorf("重置文件状态失败: %w", err)
		}
		record.Status = model.FileStatusQueued
		if err := s.fileRepo.ClearAttempts(ctx, record.FileMD5); err != nil {
			return nil, fmt.Errorf("清除导入失败次数失败: %w", err)
		}
	}

	task := tasks.IngestTask{
		FileMD5:   record.FileMD5,
		ObjectKey: record.ObjectKey,
		FileName:  record.FileName,
		Namespace: s.namespace,
	}
	if err := s.producer.ProduceIngestTask(ctx, task); err != nil {
		return nil, fmt.Errorf("投递导入任务失败: %w", err)
	}
	log.Infof("[KnowledgeService] 导入任务已投递, FileMD5: %s, FileName: %s", record.FileMD5, record.FileName)
	return &UploadResult{File: record}, nil
}

func (s *knowledgeService) List() ([]model.KnowledgeFile, error) {
	return s.fileRepo.List()
}

func (s *knowledgeService) get(fileMD5 string) (*model.KnowledgeFile, error) {
	record, err := s.fileRepo.GetByMD5(fileMD5)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFileNotFound
	}
	return record, err
}

// Delete 从向量库、数据库与对象存储中删除文件。
func (s *knowledgeService) Delete(ctx context.Context, fileMD5 string) error {
	record, err := s.get(fileMD5)
	if err != nil {
		return err
	}
	if err := s.remover.DeleteByFile(ctx, fileMD5); err != nil {
		return fmt.Errorf("删除向量库分块失败: %w", err)
	}
	if err := s.fileRepo.Delete(fileMD5); err != nil {
		return err
	}
	if err := s.objects.Remove(ctx, record.ObjectKey); err != nil {
		log.Warnf("[KnowledgeService] 删除对象失败, key: %s, err: %v", record.ObjectKey, err)
	}
	return nil
}

// DownloadURL 返回一个 1 小时有效的下载链接。
func (s *knowledgeService) DownloadURL(ctx context.Context, fileMD5 string) (string, error) {
	record, err := s.get(fileMD5)
	if err != nil {
		return "", err
	}
	return s.objects.PresignedURL(ctx, record.ObjectKey, time.Hour)
}

// SeedDirectory 导入目录下的所有普通文件（忽略隐藏文件），返回新投递的文件数。
func (s *knowledgeService) SeedDirectory(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("读取初始化目录失败: %w", err)
	}
	queued := 0
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			log.Warnf("[KnowledgeService] 打开初始化文件失败: %s, err: %v", path, err)
			continue
		}
		result, err := s.Upload(ctx, entry.Name(), f)
		f.Close()
		if err != nil {
			log.Warnf("[KnowledgeService] 初始化文件导入失败: %s, err: %v", path, err)
			continue
		}
		if !result.Duplicate {
			queued++
		}
	}
	log.Infof("[KnowledgeService] 初始化目录 '%s' 处理完成, 新投递: %d", dir, queued)
	return queued, nil
}
