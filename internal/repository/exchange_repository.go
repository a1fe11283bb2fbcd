package repository

import (
	"docqa-go/internal/model"

	"gorm.io/gorm"
)

// ExchangeRepository 定义了问答审计记录的数据操作接口。
type ExchangeRepository interface {
	Create(record *model.QAExchange) error
	FindBySessionID(sessionID string, limit int) ([]model.QAExchange, error)
}

type exchangeRepository struct {
	db *gorm.DB
}

// NewExchangeRepository 创建一个新的 ExchangeRepository 实例。
func NewExchangeRepository(db *gorm.DB) ExchangeRepository {
	return &exchangeRepository{db: db}
}

// Create 写入一条问答记录。
func (r *exchangeRepository) Create(record *model.QAExchange) error {
	return r.db.Create(record).Error
}

// FindBySessionID 按时间倒序返回某个会话最近的问答记录。
func (r *exchangeRepository) FindBySessionID(sessionID string, limit int) ([]model.QAExchange, error) {
	var records []model.QAExchange
	err := r.db.Where("session_id = ?", sessionID).Order("created_at desc").Limit(limit).Find(&records).Error
	return records, err
}
