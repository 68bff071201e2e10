package llm

import "fmt"

// 网关失败按阶段分类,便于 API 层映射到不同的 HTTP 状态码。
// 每种错误都携带定位问题所需的最小上下文。

// UpstreamFetchError reports that the source image could not be retrieved or
// is not an image. The generation request never reached the model.
type UpstreamFetchError struct {
	URL        string
	StatusCode int
	Reason     string
}

func (e *UpstreamFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch image %s: http %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch image %s: %s", e.URL, e.Reason)
}

// UpstreamGenerationError reports a failed model call: transport error,
// non-2xx status, or a response carrying no text at all.
type UpstreamGenerationError struct {
	StatusCode int
	Body       string
	Reason     string
}

func (e *UpstreamGenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("model call failed: http %d: %s", e.StatusCode, e.Body)
	}
	return "model call failed: " + e.Reason
}

// ResponseParseError reports that the model answered but the text was not
// valid JSON even after fence stripping. Raw carries the offending text for
// diagnosis; callers decide whether to expose it.
type ResponseParseError struct {
	Raw string
	Err error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("model output is not valid JSON: %v", e.Err)
}

func (e *ResponseParseError) Unwrap() error { return e.Err }

// SchemaValidationError reports structurally valid JSON whose content breaks
// the output contract (wrong caption count, unknown enum value, missing
// required text).
type SchemaValidationError struct {
	Raw    string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	return "model output violates result schema: " + e.Reason
}
