// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// IngestTask 描述一次知识库导入任务：从对象存储读取文件，切分、向量化后写入向量库。
type IngestTask struct {
	FileMD5   string `json:"file_md5"`
	ObjectKey string `json:"object_key"`
	FileName  string `json:"file_name"`
	Namespace string `json:"namespace"`
}
