package model

import (
	"errors"
	"fmt"
)

// PlanningError 大纲无法生成或解析
type PlanningError struct {
	Reason string
	Err    error
}

func (e *PlanningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("planning failed: %s: %v", e.Reason, e.Err)
	}
	return "planning failed: " + e.Reason
}

func (e *PlanningError) Unwrap() error { return e.Err }

// SectionError 单个章节检索或撰写失败，在章节内部消化
type SectionError struct {
	SectionID string
	Stage     string // search | draft
	Err       error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("section %s %s failed: %v", e.SectionID, e.Stage, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }

// CompilationError 合稿前置条件不满足，属于程序错误
type CompilationError struct {
	Reason string
}

func (e *CompilationError) Error() string {
	return "compilation failed: " + e.Reason
}

// BenchmarkError 评估失败，按未达标处理
type BenchmarkError struct {
	Err error
}

func (e *BenchmarkError) Error() string {
	return fmt.Sprintf("benchmark failed: %v", e.Err)
}

func (e *BenchmarkError) Unwrap() error { return e.Err }

// BudgetExceededError 总时长或重写轮次超限
type BudgetExceededError struct {
	Limit string // wall_clock | redraft_cycles
	Err   error
}

func (e *BudgetExceededError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("budget exceeded (%s): %v", e.Limit, e.Err)
	}
	return fmt.Sprintf("budget exceeded (%s)", e.Limit)
}

func (e *BudgetExceededError) Unwrap() error { return e.Err }

func IsPlanningError(err error) bool {
	var e *PlanningError
	return errors.As(err, &e)
}

func IsSectionError(err error) bool {
	var e *SectionError
	return errors.As(err, &e)
}

func IsCompilationError(err error) bool {
	var e *CompilationError
	return errors.As(err, &e)
}

func IsBenchmarkError(err error) bool {
	var e *BenchmarkError
	return errors.As(err, &e)
}

func IsBudgetExceeded(err error) bool {
	var e *BudgetExceededError
	return errors.As(err, &e)
}
