// Package model 包含了应用的数据模型定义。
package model

import "time"

// SessionTurn 代表存储在 Redis 中的一轮会话记录。
type SessionTurn struct {
	User       string    `json:"user"`
	Assistant  string    `json:"assistant"`
	RecordedAt LocalTime `json:"recordedAt"`
}

// QAExchange 代表一次完整问答的审计记录。
type QAExchange struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	SessionID          string    `gorm:"type:varchar(64);index" json:"sessionId"`
	Question           string    `gorm:"type:text;not null" json:"question"`
	StandaloneQuestion string    `gorm:"type:text" json:"standaloneQuestion"`
	Answer             string    `gorm:"type:text;not null" json:"answer"`
	SourceCount        int       `gorm:"not null" json:"sourceCount"`
	TopScore           float64   `json:"topScore"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (QAExchange) TableName() string {
	return "qa_exchanges"
}
