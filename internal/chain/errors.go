package chain

import "fmt"

// Stage 标识流水线中调用外部服务的阶段。
type Stage string

const (
	StageCondense   Stage = "condense"
	StageEmbed      Stage = "embed"
	StageSearch     Stage = "search"
	StageSynthesize Stage = "synthesize"
	StageAwait      Stage = "await_retrieval"
)

// UpstreamError 表示某个外部服务（嵌入、向量库、模型）调用失败。
type UpstreamError struct {
	Stage Stage
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func upstream(stage Stage, err error) error {
	return &UpstreamError{Stage: stage, Err: err}
}
