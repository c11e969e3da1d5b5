package agent

import "errors"

var (
	// ErrProviderNotSet 生成后端未设置
	ErrProviderNotSet = errors.New("llm provider not set")

	// ErrConfigInvalid 配置无效
	ErrConfigInvalid = errors.New("invalid agent config")

	// ErrFunctionNotFound 函数未找到
	ErrFunctionNotFound = errors.New("function not found")
)

const (
	// EmptyResponseApology replaces an empty final text.
	EmptyResponseApology = "I apologize, but I couldn't generate a response. Please try again."

	// ErrorApology is the content of a turn that failed at the loop boundary.
	ErrorApology = "I apologize, but I encountered an error processing your request. Please try again."
)
