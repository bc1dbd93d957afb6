package models

import (
	"time"
)

// TaskStatus 定义了任务的几种可能状态。
// 状态只会单向推进：pending → processing → done/error，终态之后不再变化。
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusError      TaskStatus = "error"
)

// Terminal 判断状态是否为终态。
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusDone || s == TaskStatusError
}

// TaskType 定义了任务的输入类型。
type TaskType string

const (
	TaskTypeYouTube TaskType = "youtube" // SourceData 是视频链接
	TaskTypeFile    TaskType = "file"    // SourceData 是已上传文件的本地路径
)

// Task 代表一个持久化的摘要任务记录。
// 行由 Gateway 创建（pending），只被 Worker 修改，Gateway 的轮询只读。
type Task struct {
	ID         uint       `gorm:"primarykey"`
	UserID     uint       `gorm:"index;not null"`
	Type       TaskType   `gorm:"type:varchar(20);not null"`
	SourceData string     `gorm:"size:2048;not null"`
	Status     TaskStatus `gorm:"type:varchar(20);default:'pending';not null"`
	ResultText *string    `gorm:"type:text"` // 仅在终态时非空
	CreatedAt  time.Time

	User User `gorm:"foreignKey:UserID"`
}

func (Task) TableName() string {
	return "tasks"
}

// TaskMessage 是调度队列中消息体的格式。
// 消息只携带任务 ID，任务内容本身保存在数据库里。
type TaskMessage struct {
	TaskID uint `json:"task_id"`
}
